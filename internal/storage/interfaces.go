package storage

import (
	"context"

	"vaultscan/internal/domain"
)

// PoolStore persists EVM pool entity and metric rows.
type PoolStore interface {
	// Persist upserts entity rows then metric rows in one
	// transaction and returns the counts written. An empty entity
	// set is a no-op returning (0, 0).
	Persist(ctx context.Context, pools []domain.EvmPool, metrics []domain.EvmPoolMetric) (int, int, error)

	// GetByPoolID retrieves one pool entity. Returns ErrNotFound if
	// it does not exist.
	GetByPoolID(ctx context.Context, poolID string) (*domain.EvmPool, error)
}

// VaultStore persists vault entity and metric rows.
type VaultStore interface {
	// UpsertVaults writes entity rows keyed by vault_address and
	// returns the count written.
	UpsertVaults(ctx context.Context, vaults []domain.Vault) (int, error)

	// UpsertMetrics writes time-series rows keyed by
	// (time, vault_address) and returns the count written. Entity
	// rows must exist first.
	UpsertMetrics(ctx context.Context, metrics []domain.VaultMetric) (int, error)

	// GetByAddress retrieves one vault entity. Returns ErrNotFound
	// if it does not exist.
	GetByAddress(ctx context.Context, vaultAddress string) (*domain.Vault, error)
}

// RankingStore maintains the top-vaults leaderboard.
type RankingStore interface {
	// Recompute replaces the whole leaderboard with the top n vaults
	// by their most recent max_distributable_tvl and returns the
	// number of rows written.
	Recompute(ctx context.Context, n int) (int, error)

	// List returns the leaderboard ordered by rank.
	List(ctx context.Context) ([]domain.TopVault, error)
}
