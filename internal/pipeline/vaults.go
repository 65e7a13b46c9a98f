package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vaultscan/internal/domain"
	"vaultscan/internal/observability"
	"vaultscan/internal/storage"
	"vaultscan/internal/transform"
)

// VaultClient is the slice of the Hyperliquid client the vault flow
// needs.
type VaultClient interface {
	FetchAllStats(ctx context.Context) ([]domain.StatsVault, error)
	FetchVaultDetailsBatch(ctx context.Context, addresses []string, concurrency int64) (map[string]*domain.VaultDetails, error)
}

// VaultSyncer runs the vault discovery flow: snapshot the full vault
// listing, upsert entity rows, then fetch per-vault details and upsert
// the metric rows.
type VaultSyncer struct {
	client  VaultClient
	store   storage.VaultStore
	metrics *observability.Metrics

	// DetailsConcurrency bounds parallel detail requests.
	DetailsConcurrency int64

	// DetailsLimit caps how many vaults get detail metrics per run.
	// Zero means all of them.
	DetailsLimit int
}

// NewVaultSyncer creates a VaultSyncer with the default detail fan-out.
func NewVaultSyncer(client VaultClient, store storage.VaultStore, metrics *observability.Metrics) *VaultSyncer {
	return &VaultSyncer{
		client:             client,
		store:              store,
		metrics:            metrics,
		DetailsConcurrency: 10,
	}
}

// VaultSyncResult reports what one flow run did.
type VaultSyncResult struct {
	VaultsFetched  int
	VaultsWritten  int
	DetailsFetched int
	MetricsWritten int
}

// Run executes one sync. Zero vaults from the listing aborts the run:
// the endpoint never legitimately returns an empty list, so an empty
// response means a failed or geo-blocked request.
func (s *VaultSyncer) Run(ctx context.Context) (*VaultSyncResult, error) {
	start := time.Now()
	result, err := s.run(ctx)
	s.observeRun("vaults", start, err)
	return result, err
}

func (s *VaultSyncer) run(ctx context.Context) (*VaultSyncResult, error) {
	stats, err := s.client.FetchAllStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch vault listing: %w", err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("vault sync: listing came back empty: %w", storage.ErrNoRows)
	}
	logrus.Infof("Fetched %d vaults from listing", len(stats))

	result := &VaultSyncResult{VaultsFetched: len(stats)}

	now := time.Now().UTC()
	vaults := transform.BuildVaultRows(stats, now)

	// Entity rows go in before metrics so the foreign keys resolve.
	nVaults, err := s.store.UpsertVaults(ctx, vaults)
	if err != nil {
		return nil, fmt.Errorf("upsert vaults: %w", err)
	}
	result.VaultsWritten = nVaults
	s.metrics.RowsPersisted.WithLabelValues("vaults").Add(float64(nVaults))

	addresses := transform.ExtractAddresses(stats)
	if s.DetailsLimit > 0 && len(addresses) > s.DetailsLimit {
		logrus.Infof("Limiting detail fetch to %d of %d vaults", s.DetailsLimit, len(addresses))
		addresses = addresses[:s.DetailsLimit]
	}

	detailsByAddress, err := s.client.FetchVaultDetailsBatch(ctx, addresses, s.DetailsConcurrency)
	if err != nil {
		return nil, fmt.Errorf("fetch vault details: %w", err)
	}
	result.DetailsFetched = len(detailsByAddress)

	details := make([]domain.VaultDetails, 0, len(detailsByAddress))
	for _, address := range addresses {
		if d, ok := detailsByAddress[address]; ok {
			details = append(details, *d)
		}
	}

	metrics := transform.BuildVaultMetricRows(details, now)
	logParsedMetrics(metrics)

	nMetrics, err := s.store.UpsertMetrics(ctx, metrics)
	if err != nil {
		return nil, fmt.Errorf("upsert vault metrics: %w", err)
	}
	result.MetricsWritten = nMetrics
	s.metrics.RowsPersisted.WithLabelValues("vault_metrics").Add(float64(nMetrics))

	logrus.Infof("Vault sync done: %d vaults, %d details, %d metrics written",
		nVaults, result.DetailsFetched, nMetrics)
	return result, nil
}

// logParsedMetrics reports how many parsed rows carried the optional
// day-window fields. A sudden drop to zero with a healthy row count
// points at a decode regression rather than a degraded upstream.
func logParsedMetrics(metrics []domain.VaultMetric) {
	vlmDay := 0
	drawdownDay := 0
	for _, m := range metrics {
		if m.VlmDay != nil {
			vlmDay++
		}
		if m.MaxDrawdownDay != nil {
			drawdownDay++
		}
	}
	logrus.Infof("Parsed metrics: rows=%d vlm_day_non_null=%d max_drawdown_day_non_null=%d",
		len(metrics), vlmDay, drawdownDay)
}

func (s *VaultSyncer) observeRun(flow string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RunsTotal.WithLabelValues(flow, status).Inc()
	s.metrics.RunDuration.WithLabelValues(flow).Observe(time.Since(start).Seconds())
}

// Ranker recomputes the top-vaults leaderboard.
type Ranker struct {
	store   storage.RankingStore
	metrics *observability.Metrics
}

// NewRanker creates a Ranker.
func NewRanker(store storage.RankingStore, metrics *observability.Metrics) *Ranker {
	return &Ranker{store: store, metrics: metrics}
}

// Run rebuilds the leaderboard with the top n vaults and returns the
// number of rows written.
func (r *Ranker) Run(ctx context.Context, n int) (int, error) {
	start := time.Now()
	count, err := r.store.Recompute(ctx, n)

	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RunsTotal.WithLabelValues("top_vaults", status).Inc()
	r.metrics.RunDuration.WithLabelValues("top_vaults").Observe(time.Since(start).Seconds())

	if err != nil {
		return 0, fmt.Errorf("recompute top vaults: %w", err)
	}
	r.metrics.RowsPersisted.WithLabelValues("top_vaults").Add(float64(count))
	logrus.Infof("Top vaults recomputed: %d rows", count)
	return count, nil
}
