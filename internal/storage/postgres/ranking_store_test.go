package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultscan/internal/domain"
)

// seedVaultMetrics writes a vault row plus one metric row per entry.
func seedVaultMetrics(t *testing.T, store *VaultStore, rows map[string][]domain.VaultMetric) {
	t.Helper()
	ctx := context.Background()

	var vaults []domain.Vault
	var metrics []domain.VaultMetric
	for address, ms := range rows {
		vaults = append(vaults, domain.Vault{VaultAddress: address})
		metrics = append(metrics, ms...)
	}
	_, err := store.UpsertVaults(ctx, vaults)
	require.NoError(t, err)
	_, err = store.UpsertMetrics(ctx, metrics)
	require.NoError(t, err)
}

func TestRankingStore_RecomputeRanksByLatestMetric(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	vaultStore := NewVaultStore(pool)
	store := NewRankingStore(pool)
	ctx := context.Background()

	old := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	seedVaultMetrics(t, vaultStore, map[string][]domain.VaultMetric{
		// Older row had the biggest TVL. Only the latest row counts.
		"0xaaa": {
			{Time: old, VaultAddress: "0xaaa", MaxDistributableTVL: ptr(9_000_000.0)},
			{Time: latest, VaultAddress: "0xaaa", MaxDistributableTVL: ptr(100.0)},
		},
		"0xbbb": {
			{Time: latest, VaultAddress: "0xbbb", MaxDistributableTVL: ptr(5_000.0)},
		},
		"0xccc": {
			{Time: latest, VaultAddress: "0xccc", MaxDistributableTVL: ptr(300.0)},
		},
	})

	n, err := store.Recompute(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	top, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "0xbbb", top[0].VaultAddress)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 5_000.0, *top[0].TVLUSD)
	assert.Equal(t, "0xccc", top[1].VaultAddress)
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, "0xaaa", top[2].VaultAddress)
	assert.Equal(t, 3, top[2].Rank)
	assert.True(t, top[2].MetricsTime.Equal(latest))
}

func TestRankingStore_RecomputeLimitsAndReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	vaultStore := NewVaultStore(pool)
	store := NewRankingStore(pool)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedVaultMetrics(t, vaultStore, map[string][]domain.VaultMetric{
		"0xaaa": {{Time: at, VaultAddress: "0xaaa", MaxDistributableTVL: ptr(100.0)}},
		"0xbbb": {{Time: at, VaultAddress: "0xbbb", MaxDistributableTVL: ptr(200.0)}},
		"0xccc": {{Time: at, VaultAddress: "0xccc", MaxDistributableTVL: ptr(300.0)}},
	})

	n, err := store.Recompute(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	top, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "0xccc", top[0].VaultAddress)
	assert.Equal(t, "0xbbb", top[1].VaultAddress)

	// A second recompute replaces the leaderboard rather than appending.
	n, err = store.Recompute(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	top, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestRankingStore_RecomputeNullsLast(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	vaultStore := NewVaultStore(pool)
	store := NewRankingStore(pool)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedVaultMetrics(t, vaultStore, map[string][]domain.VaultMetric{
		"0xnull": {{Time: at, VaultAddress: "0xnull"}},
		"0xval":  {{Time: at, VaultAddress: "0xval", MaxDistributableTVL: ptr(1.0)}},
	})

	_, err := store.Recompute(ctx, 500)
	require.NoError(t, err)

	top, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "0xval", top[0].VaultAddress)
	assert.Equal(t, "0xnull", top[1].VaultAddress)
	assert.Nil(t, top[1].TVLUSD)
}

func TestRankingStore_RecomputeEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRankingStore(pool)
	ctx := context.Background()

	n, err := store.Recompute(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	top, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, top)
}
