package postgres

import (
	"context"
	"fmt"
	"time"

	"vaultscan/internal/domain"
	"vaultscan/internal/storage"
)

// RankingStore implements storage.RankingStore using PostgreSQL.
type RankingStore struct {
	pool *Pool
}

// NewRankingStore creates a new RankingStore.
func NewRankingStore(pool *Pool) *RankingStore {
	return &RankingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RankingStore = (*RankingStore)(nil)

// Recompute rebuilds the top_vaults leaderboard from the latest metric
// row per vault, ordered by max_distributable_tvl with nulls last. The
// old leaderboard is dropped and the new one written in one
// transaction, so readers never observe a partial table.
func (s *RankingStore) Recompute(ctx context.Context, n int) (int, error) {
	query := `
		WITH latest AS (
			SELECT vault_address, time, max_distributable_tvl,
			       ROW_NUMBER() OVER (PARTITION BY vault_address ORDER BY time DESC) AS rn
			FROM hyperliquid_vaults_discovery.vault_metrics
		)
		SELECT vault_address, time, max_distributable_tvl
		FROM latest
		WHERE rn = 1
		ORDER BY max_distributable_tvl DESC NULLS LAST
		LIMIT $1
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, n)
	if err != nil {
		return 0, fmt.Errorf("select latest metrics: %w", err)
	}

	type ranked struct {
		address string
		time    time.Time
		tvl     *float64
	}
	var top []ranked
	for rows.Next() {
		var r ranked
		if err := rows.Scan(&r.address, &r.time, &r.tvl); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan latest metric: %w", err)
		}
		top = append(top, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate latest metrics: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM hyperliquid_vaults_discovery.top_vaults`); err != nil {
		return 0, fmt.Errorf("clear top vaults: %w", err)
	}

	const topVaultCols = 5
	now := time.Now().UTC()
	for start := 0; start < len(top); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(top) {
			end = len(top)
		}
		batch := top[start:end]

		insert := `
			INSERT INTO hyperliquid_vaults_discovery.top_vaults (
				vault_address, rank, tvl_usd, metrics_time, updated_at
			) VALUES ` + valuesPlaceholders(len(batch), topVaultCols)

		args := make([]any, 0, len(batch)*topVaultCols)
		for i, r := range batch {
			args = append(args, r.address, start+i+1, r.tvl, r.time, now)
		}
		if _, err := tx.Exec(ctx, insert, args...); err != nil {
			return 0, fmt.Errorf("insert top vaults: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(top), nil
}

// List returns the current leaderboard ordered by rank.
func (s *RankingStore) List(ctx context.Context) ([]domain.TopVault, error) {
	query := `
		SELECT vault_address, rank, tvl_usd, metrics_time, updated_at
		FROM hyperliquid_vaults_discovery.top_vaults
		ORDER BY rank ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list top vaults: %w", err)
	}
	defer rows.Close()

	var out []domain.TopVault
	for rows.Next() {
		var t domain.TopVault
		if err := rows.Scan(&t.VaultAddress, &t.Rank, &t.TVLUSD, &t.MetricsTime, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan top vault: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top vaults: %w", err)
	}
	return out, nil
}
