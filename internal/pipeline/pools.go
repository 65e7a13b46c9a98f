// Package pipeline wires the fetch, transform and persistence stages
// into runnable sync flows.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vaultscan/internal/domain"
	"vaultscan/internal/merge"
	"vaultscan/internal/observability"
	"vaultscan/internal/storage"
	"vaultscan/internal/transform"
)

// PoolAdapter fetches raw pool rows from one source.
type PoolAdapter interface {
	// Name returns the source identifier used for merge precedence
	// and metric labels.
	Name() string

	// Fetch returns the source's current pool snapshot.
	Fetch(ctx context.Context) ([]domain.RawPool, error)
}

// PoolSyncer runs the pool discovery flow: fetch every source, merge,
// build rows and upsert them.
type PoolSyncer struct {
	adapters []PoolAdapter
	store    storage.PoolStore
	metrics  *observability.Metrics
}

// NewPoolSyncer creates a PoolSyncer. Adapter order is merge
// precedence: a later adapter's row wins on pool_id collision.
func NewPoolSyncer(store storage.PoolStore, metrics *observability.Metrics, adapters ...PoolAdapter) *PoolSyncer {
	return &PoolSyncer{
		adapters: adapters,
		store:    store,
		metrics:  metrics,
	}
}

// PoolSyncResult reports what one flow run did.
type PoolSyncResult struct {
	FetchedBySource map[string]int
	MergedRows      int
	PoolsWritten    int
	MetricsWritten  int
}

// Run executes one sync. A failing adapter is logged and contributes
// nothing; the run aborts only when every source came back empty, so a
// stale snapshot is never partially overwritten by a total outage.
// With persist false the flow stops before writing.
func (s *PoolSyncer) Run(ctx context.Context, persist bool) (*PoolSyncResult, error) {
	start := time.Now()
	result, err := s.run(ctx, persist)
	s.observeRun("pools", start, err)
	return result, err
}

func (s *PoolSyncer) run(ctx context.Context, persist bool) (*PoolSyncResult, error) {
	result := &PoolSyncResult{FetchedBySource: make(map[string]int)}

	batches := make([][]domain.RawPool, 0, len(s.adapters))
	for _, adapter := range s.adapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pools, err := adapter.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logrus.Warnf("Adapter %s failed, continuing without it: %v", adapter.Name(), err)
			s.metrics.AdapterErrors.WithLabelValues(adapter.Name()).Inc()
			continue
		}

		logrus.Infof("Fetched %d pools from %s", len(pools), adapter.Name())
		s.metrics.PoolsFetched.WithLabelValues(adapter.Name()).Add(float64(len(pools)))
		result.FetchedBySource[adapter.Name()] = len(pools)
		batches = append(batches, pools)
	}

	merged := merge.Pools(batches...)
	result.MergedRows = len(merged)
	if len(merged) == 0 {
		return nil, fmt.Errorf("pool sync: every source came back empty: %w", storage.ErrNoRows)
	}

	now := time.Now().UTC()
	pools := transform.BuildPoolRows(merged, now)
	metrics := transform.BuildPoolMetricRows(merged, now)

	if !persist {
		// Report the counts the write would have produced.
		result.PoolsWritten = len(pools)
		result.MetricsWritten = len(metrics)
		logrus.Infof("Dry run: skipping persist of %d pools and %d metrics", len(pools), len(metrics))
		return result, nil
	}

	nPools, nMetrics, err := s.store.Persist(ctx, pools, metrics)
	if err != nil {
		return nil, fmt.Errorf("persist pools: %w", err)
	}
	result.PoolsWritten = nPools
	result.MetricsWritten = nMetrics
	s.metrics.RowsPersisted.WithLabelValues("evm_pools").Add(float64(nPools))
	s.metrics.RowsPersisted.WithLabelValues("evm_pool_metrics").Add(float64(nMetrics))

	logrus.Infof("Pool sync done: %d merged, %d pools and %d metrics written",
		result.MergedRows, nPools, nMetrics)
	return result, nil
}

func (s *PoolSyncer) observeRun(flow string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RunsTotal.WithLabelValues(flow, status).Inc()
	s.metrics.RunDuration.WithLabelValues(flow).Observe(time.Since(start).Seconds())
}
