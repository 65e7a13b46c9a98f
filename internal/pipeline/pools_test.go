package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultscan/internal/domain"
	"vaultscan/internal/observability"
	"vaultscan/internal/storage"
)

type fakeAdapter struct {
	name  string
	pools []domain.RawPool
	err   error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Fetch(ctx context.Context) ([]domain.RawPool, error) {
	return a.pools, a.err
}

type fakePoolStore struct {
	pools   []domain.EvmPool
	metrics []domain.EvmPoolMetric
	err     error
	calls   int
}

func (s *fakePoolStore) Persist(ctx context.Context, pools []domain.EvmPool, metrics []domain.EvmPoolMetric) (int, int, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, s.err
	}
	s.pools = pools
	s.metrics = metrics
	return len(pools), len(metrics), nil
}

func (s *fakePoolStore) GetByPoolID(ctx context.Context, poolID string) (*domain.EvmPool, error) {
	return nil, storage.ErrNotFound
}

func testMetrics() *observability.Metrics {
	return observability.Register(prometheus.NewRegistry())
}

func rawPool(source, id, name string) domain.RawPool {
	return domain.RawPool{Source: domain.Source(source), PoolID: id, Name: name}
}

func TestPoolSyncerMergesAndPersists(t *testing.T) {
	store := &fakePoolStore{}
	syncer := NewPoolSyncer(store, testMetrics(),
		&fakeAdapter{name: "defillama", pools: []domain.RawPool{
			rawPool("defillama", "0xaaa", "llama view"),
			rawPool("defillama", "0xbbb", "only llama"),
		}},
		&fakeAdapter{name: "hyperlend", pools: []domain.RawPool{
			rawPool("hyperlend", "0xaaa", "on-chain view"),
		}},
	)

	result, err := syncer.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FetchedBySource["defillama"])
	assert.Equal(t, 1, result.FetchedBySource["hyperlend"])
	assert.Equal(t, 2, result.MergedRows)
	assert.Equal(t, 2, result.PoolsWritten)
	assert.Equal(t, 2, result.MetricsWritten)

	// The later adapter's row wins the collision on 0xaaa.
	byID := make(map[string]domain.EvmPool)
	for _, p := range store.pools {
		byID[p.PoolID] = p
	}
	assert.Equal(t, "on-chain view", *byID["0xaaa"].Name)
	assert.Equal(t, "hyperlend", byID["0xaaa"].Source)
	assert.Equal(t, "only llama", *byID["0xbbb"].Name)
}

func TestPoolSyncerIsolatesAdapterFailure(t *testing.T) {
	store := &fakePoolStore{}
	syncer := NewPoolSyncer(store, testMetrics(),
		&fakeAdapter{name: "defillama", err: errors.New("boom")},
		&fakeAdapter{name: "hyperlend", pools: []domain.RawPool{rawPool("hyperlend", "0xaaa", "ok")}},
	)

	result, err := syncer.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MergedRows)
	_, fetched := result.FetchedBySource["defillama"]
	assert.False(t, fetched)
}

func TestPoolSyncerAbortsWhenAllEmpty(t *testing.T) {
	store := &fakePoolStore{}
	syncer := NewPoolSyncer(store, testMetrics(),
		&fakeAdapter{name: "defillama", err: errors.New("boom")},
		&fakeAdapter{name: "hyperlend", pools: nil},
	)

	_, err := syncer.Run(context.Background(), true)
	assert.ErrorIs(t, err, storage.ErrNoRows)
	assert.Zero(t, store.calls)
}

func TestPoolSyncerDryRunSkipsPersist(t *testing.T) {
	store := &fakePoolStore{}
	syncer := NewPoolSyncer(store, testMetrics(),
		&fakeAdapter{name: "hyperlend", pools: []domain.RawPool{rawPool("hyperlend", "0xaaa", "ok")}},
	)

	result, err := syncer.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MergedRows)

	// The counts report what a real run would have written.
	assert.Equal(t, 1, result.PoolsWritten)
	assert.Equal(t, 1, result.MetricsWritten)
	assert.Zero(t, store.calls)
}

func TestPoolSyncerPropagatesStoreError(t *testing.T) {
	store := &fakePoolStore{err: errors.New("connection refused")}
	syncer := NewPoolSyncer(store, testMetrics(),
		&fakeAdapter{name: "hyperlend", pools: []domain.RawPool{rawPool("hyperlend", "0xaaa", "ok")}},
	)

	_, err := syncer.Run(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist pools")
}

func TestPoolSyncerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakePoolStore{}
	syncer := NewPoolSyncer(store, testMetrics(),
		&fakeAdapter{name: "hyperlend", pools: []domain.RawPool{rawPool("hyperlend", "0xaaa", "ok")}},
	)

	_, err := syncer.Run(ctx, true)
	assert.ErrorIs(t, err, context.Canceled)
}
