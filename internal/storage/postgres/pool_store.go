package postgres

import (
	"context"
	"fmt"
	"time"

	"vaultscan/internal/domain"
	"vaultscan/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

const evmPoolCols = 13

// Persist upserts pool rows and their metric rows in a single
// transaction. Pool rows go first so the metric foreign keys resolve.
// An empty pool set is a no-op.
func (s *PoolStore) Persist(ctx context.Context, pools []domain.EvmPool, metrics []domain.EvmPoolMetric) (int, int, error) {
	if len(pools) == 0 {
		return 0, 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	poolCount := 0
	for start := 0; start < len(pools); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(pools) {
			end = len(pools)
		}
		batch := pools[start:end]

		query := `
			INSERT INTO hyperliquid_vaults_discovery.evm_pools (
				pool_id, source, protocol, name, symbol, contract_address, accepts_usdc,
				ltv, liquidation_threshold, liquidation_bonus, reserve_factor, decimals, updated_at
			) VALUES ` + valuesPlaceholders(len(batch), evmPoolCols) + `
			ON CONFLICT (pool_id) DO UPDATE SET
				source = EXCLUDED.source,
				protocol = EXCLUDED.protocol,
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				contract_address = EXCLUDED.contract_address,
				accepts_usdc = EXCLUDED.accepts_usdc,
				ltv = EXCLUDED.ltv,
				liquidation_threshold = EXCLUDED.liquidation_threshold,
				liquidation_bonus = EXCLUDED.liquidation_bonus,
				reserve_factor = EXCLUDED.reserve_factor,
				decimals = EXCLUDED.decimals,
				updated_at = EXCLUDED.updated_at
		`

		args := make([]any, 0, len(batch)*evmPoolCols)
		now := time.Now().UTC()
		for _, p := range batch {
			args = append(args,
				p.PoolID,
				p.Source,
				p.Protocol,
				p.Name,
				p.Symbol,
				p.ContractAddress,
				p.AcceptsUSDC,
				p.LTV,
				p.LiquidationThreshold,
				p.LiquidationBonus,
				p.ReserveFactor,
				p.Decimals,
				now,
			)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, 0, fmt.Errorf("upsert evm pools: %w", err)
		}
		poolCount += len(batch)
	}

	metricCount, err := upsertPoolMetrics(ctx, tx, metrics)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit tx: %w", err)
	}
	return poolCount, metricCount, nil
}

const evmPoolMetricCols = 11

func upsertPoolMetrics(ctx context.Context, tx pgxTx, metrics []domain.EvmPoolMetric) (int, error) {
	count := 0
	for start := 0; start < len(metrics); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(metrics) {
			end = len(metrics)
		}
		batch := metrics[start:end]

		query := `
			INSERT INTO hyperliquid_vaults_discovery.evm_pool_metrics (
				time, pool_id, tvl_usd, apy_base, apy_reward, apy_total,
				apy_borrow_variable, apy_borrow_stable, total_debt_usd, utilization_rate, updated_at
			) VALUES ` + valuesPlaceholders(len(batch), evmPoolMetricCols) + `
			ON CONFLICT (time, pool_id) DO UPDATE SET
				tvl_usd = EXCLUDED.tvl_usd,
				apy_base = EXCLUDED.apy_base,
				apy_reward = EXCLUDED.apy_reward,
				apy_total = EXCLUDED.apy_total,
				apy_borrow_variable = EXCLUDED.apy_borrow_variable,
				apy_borrow_stable = EXCLUDED.apy_borrow_stable,
				total_debt_usd = EXCLUDED.total_debt_usd,
				utilization_rate = EXCLUDED.utilization_rate,
				updated_at = EXCLUDED.updated_at
		`

		args := make([]any, 0, len(batch)*evmPoolMetricCols)
		now := time.Now().UTC()
		for _, m := range batch {
			args = append(args,
				m.Time,
				m.PoolID,
				m.TVLUSD,
				m.APYBase,
				m.APYReward,
				m.APYTotal,
				m.APYBorrowVariable,
				m.APYBorrowStable,
				m.TotalDebtUSD,
				m.UtilizationRate,
				now,
			)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isForeignKeyError(err) {
				return 0, fmt.Errorf("upsert evm pool metrics: pool row missing: %w", err)
			}
			return 0, fmt.Errorf("upsert evm pool metrics: %w", err)
		}
		count += len(batch)
	}
	return count, nil
}

// GetByPoolID retrieves a pool row by its source-assigned identifier.
// Returns ErrNotFound if no row exists.
func (s *PoolStore) GetByPoolID(ctx context.Context, poolID string) (*domain.EvmPool, error) {
	query := `
		SELECT pool_id, source, protocol, name, symbol, contract_address, accepts_usdc,
		       ltv, liquidation_threshold, liquidation_bonus, reserve_factor, decimals,
		       created_at, updated_at
		FROM hyperliquid_vaults_discovery.evm_pools
		WHERE pool_id = $1
	`

	var p domain.EvmPool
	err := s.pool.QueryRow(ctx, query, poolID).Scan(
		&p.PoolID,
		&p.Source,
		&p.Protocol,
		&p.Name,
		&p.Symbol,
		&p.ContractAddress,
		&p.AcceptsUSDC,
		&p.LTV,
		&p.LiquidationThreshold,
		&p.LiquidationBonus,
		&p.ReserveFactor,
		&p.Decimals,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}
	return &p, nil
}
