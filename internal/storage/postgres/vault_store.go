package postgres

import (
	"context"
	"fmt"
	"time"

	"vaultscan/internal/domain"
	"vaultscan/internal/storage"
)

// VaultStore implements storage.VaultStore using PostgreSQL.
type VaultStore struct {
	pool *Pool
}

// NewVaultStore creates a new VaultStore.
func NewVaultStore(pool *Pool) *VaultStore {
	return &VaultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VaultStore = (*VaultStore)(nil)

const vaultCols = 10

// UpsertVaults inserts or updates vault rows keyed by vault_address.
// created_at and vault_create_time are preserved on conflict so a
// listing that omits createTimeMillis cannot null out a creation time
// learned earlier; everything else is overwritten.
func (s *VaultStore) UpsertVaults(ctx context.Context, vaults []domain.Vault) (int, error) {
	if len(vaults) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	count := 0
	for start := 0; start < len(vaults); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(vaults) {
			end = len(vaults)
		}
		batch := vaults[start:end]

		query := `
			INSERT INTO hyperliquid_vaults_discovery.vaults (
				vault_address, name, leader_address, description, is_closed,
				relationship_type, tvl_usd, vault_create_time, created_at, updated_at
			) VALUES ` + valuesPlaceholders(len(batch), vaultCols) + `
			ON CONFLICT (vault_address) DO UPDATE SET
				name = EXCLUDED.name,
				leader_address = EXCLUDED.leader_address,
				description = EXCLUDED.description,
				is_closed = EXCLUDED.is_closed,
				relationship_type = EXCLUDED.relationship_type,
				tvl_usd = EXCLUDED.tvl_usd,
				updated_at = EXCLUDED.updated_at
		`

		args := make([]any, 0, len(batch)*vaultCols)
		now := time.Now().UTC()
		for _, v := range batch {
			args = append(args,
				v.VaultAddress,
				v.Name,
				v.LeaderAddress,
				v.Description,
				v.IsClosed,
				v.RelationshipType,
				v.TVLUSD,
				v.VaultCreateTime,
				now,
				now,
			)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upsert vaults: %w", err)
		}
		count += len(batch)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return count, nil
}

const vaultMetricCols = 20

// UpsertMetrics inserts or updates vault metric rows on their
// (time, vault_address) key. Conflicting rows are fully replaced.
func (s *VaultStore) UpsertMetrics(ctx context.Context, metrics []domain.VaultMetric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	count := 0
	for start := 0; start < len(metrics); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(metrics) {
			end = len(metrics)
		}
		batch := metrics[start:end]

		query := `
			INSERT INTO hyperliquid_vaults_discovery.vault_metrics (
				time, vault_address, max_distributable_tvl, apr, leader_commission, follower_count,
				pnl_day, pnl_week, pnl_month, pnl_all_time,
				vlm_day, vlm_week, vlm_month, vlm_all_time,
				max_drawdown_day, max_drawdown_week, max_drawdown_month, max_drawdown_all_time,
				created_at, updated_at
			) VALUES ` + valuesPlaceholders(len(batch), vaultMetricCols) + `
			ON CONFLICT (time, vault_address) DO UPDATE SET
				max_distributable_tvl = EXCLUDED.max_distributable_tvl,
				apr = EXCLUDED.apr,
				leader_commission = EXCLUDED.leader_commission,
				follower_count = EXCLUDED.follower_count,
				pnl_day = EXCLUDED.pnl_day,
				pnl_week = EXCLUDED.pnl_week,
				pnl_month = EXCLUDED.pnl_month,
				pnl_all_time = EXCLUDED.pnl_all_time,
				vlm_day = EXCLUDED.vlm_day,
				vlm_week = EXCLUDED.vlm_week,
				vlm_month = EXCLUDED.vlm_month,
				vlm_all_time = EXCLUDED.vlm_all_time,
				max_drawdown_day = EXCLUDED.max_drawdown_day,
				max_drawdown_week = EXCLUDED.max_drawdown_week,
				max_drawdown_month = EXCLUDED.max_drawdown_month,
				max_drawdown_all_time = EXCLUDED.max_drawdown_all_time,
				updated_at = EXCLUDED.updated_at
		`

		args := make([]any, 0, len(batch)*vaultMetricCols)
		now := time.Now().UTC()
		for _, m := range batch {
			args = append(args,
				m.Time,
				m.VaultAddress,
				m.MaxDistributableTVL,
				m.APR,
				m.LeaderCommission,
				m.FollowerCount,
				m.PnLDay,
				m.PnLWeek,
				m.PnLMonth,
				m.PnLAllTime,
				m.VlmDay,
				m.VlmWeek,
				m.VlmMonth,
				m.VlmAllTime,
				m.MaxDrawdownDay,
				m.MaxDrawdownWeek,
				m.MaxDrawdownMonth,
				m.MaxDrawdownAllTime,
				now,
				now,
			)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isForeignKeyError(err) {
				return 0, fmt.Errorf("upsert vault metrics: vault row missing: %w", err)
			}
			return 0, fmt.Errorf("upsert vault metrics: %w", err)
		}
		count += len(batch)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return count, nil
}

// GetByAddress retrieves a vault row by address. Returns ErrNotFound
// if no row exists.
func (s *VaultStore) GetByAddress(ctx context.Context, address string) (*domain.Vault, error) {
	query := `
		SELECT vault_address, name, leader_address, description, is_closed,
		       relationship_type, tvl_usd, vault_create_time, created_at, updated_at
		FROM hyperliquid_vaults_discovery.vaults
		WHERE vault_address = $1
	`

	var v domain.Vault
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&v.VaultAddress,
		&v.Name,
		&v.LeaderAddress,
		&v.Description,
		&v.IsClosed,
		&v.RelationshipType,
		&v.TVLUSD,
		&v.VaultCreateTime,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vault by address: %w", err)
	}
	return &v, nil
}
