package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultscan/internal/domain"
	"vaultscan/internal/storage"
)

type fakeVaultClient struct {
	stats    []domain.StatsVault
	statsErr error

	details    map[string]*domain.VaultDetails
	detailsErr error

	requested []string
}

func (c *fakeVaultClient) FetchAllStats(ctx context.Context) ([]domain.StatsVault, error) {
	return c.stats, c.statsErr
}

func (c *fakeVaultClient) FetchVaultDetailsBatch(ctx context.Context, addresses []string, concurrency int64) (map[string]*domain.VaultDetails, error) {
	c.requested = addresses
	if c.detailsErr != nil {
		return nil, c.detailsErr
	}
	out := make(map[string]*domain.VaultDetails)
	for _, a := range addresses {
		if d, ok := c.details[a]; ok {
			out[a] = d
		}
	}
	return out, nil
}

type fakeVaultStore struct {
	vaults  []domain.Vault
	metrics []domain.VaultMetric

	vaultErr  error
	metricErr error
}

func (s *fakeVaultStore) UpsertVaults(ctx context.Context, vaults []domain.Vault) (int, error) {
	if s.vaultErr != nil {
		return 0, s.vaultErr
	}
	s.vaults = vaults
	return len(vaults), nil
}

func (s *fakeVaultStore) UpsertMetrics(ctx context.Context, metrics []domain.VaultMetric) (int, error) {
	if s.metricErr != nil {
		return 0, s.metricErr
	}
	s.metrics = metrics
	return len(metrics), nil
}

func (s *fakeVaultStore) GetByAddress(ctx context.Context, address string) (*domain.Vault, error) {
	return nil, storage.ErrNotFound
}

func statsVault(address, name string) domain.StatsVault {
	return domain.StatsVault{
		Summary: &domain.VaultSummary{VaultAddress: address, Name: name, Leader: "0xlead"},
	}
}

func vaultDetails(address string) *domain.VaultDetails {
	dist := domain.Float(1000)
	return &domain.VaultDetails{
		VaultAddress:     address,
		MaxDistributable: &dist,
	}
}

func TestVaultSyncerRun(t *testing.T) {
	client := &fakeVaultClient{
		stats: []domain.StatsVault{
			statsVault("0xaaa", "Alpha"),
			statsVault("0xbbb", "Beta"),
		},
		details: map[string]*domain.VaultDetails{
			"0xaaa": vaultDetails("0xaaa"),
			"0xbbb": vaultDetails("0xbbb"),
		},
	}
	store := &fakeVaultStore{}
	syncer := NewVaultSyncer(client, store, testMetrics())

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.VaultsFetched)
	assert.Equal(t, 2, result.VaultsWritten)
	assert.Equal(t, 2, result.DetailsFetched)
	assert.Equal(t, 2, result.MetricsWritten)
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, client.requested)

	require.Len(t, store.vaults, 2)
	assert.Equal(t, "0xaaa", store.vaults[0].VaultAddress)
	require.Len(t, store.metrics, 2)
	assert.Equal(t, 1000.0, *store.metrics[0].MaxDistributableTVL)
}

func TestVaultSyncerAbortsOnEmptyListing(t *testing.T) {
	client := &fakeVaultClient{}
	store := &fakeVaultStore{}
	syncer := NewVaultSyncer(client, store, testMetrics())

	_, err := syncer.Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoRows)
	assert.Empty(t, store.vaults)
}

func TestVaultSyncerDetailsLimit(t *testing.T) {
	client := &fakeVaultClient{
		stats: []domain.StatsVault{
			statsVault("0xaaa", "Alpha"),
			statsVault("0xbbb", "Beta"),
			statsVault("0xccc", "Gamma"),
		},
		details: map[string]*domain.VaultDetails{
			"0xaaa": vaultDetails("0xaaa"),
		},
	}
	store := &fakeVaultStore{}
	syncer := NewVaultSyncer(client, store, testMetrics())
	syncer.DetailsLimit = 1

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	// Every vault gets an entity row; only the capped prefix gets metrics.
	assert.Equal(t, 3, result.VaultsWritten)
	assert.Equal(t, []string{"0xaaa"}, client.requested)
	assert.Equal(t, 1, result.MetricsWritten)
}

func TestVaultSyncerSkipsMissingDetails(t *testing.T) {
	client := &fakeVaultClient{
		stats: []domain.StatsVault{
			statsVault("0xaaa", "Alpha"),
			statsVault("0xbbb", "Beta"),
		},
		details: map[string]*domain.VaultDetails{
			"0xbbb": vaultDetails("0xbbb"),
		},
	}
	store := &fakeVaultStore{}
	syncer := NewVaultSyncer(client, store, testMetrics())

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.VaultsWritten)
	assert.Equal(t, 1, result.MetricsWritten)
	require.Len(t, store.metrics, 1)
	assert.Equal(t, "0xbbb", store.metrics[0].VaultAddress)
}

func TestVaultSyncerLogsParsedMetricBreakdown(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	vlm := domain.Float(500)
	withVlm := vaultDetails("0xaaa")
	withVlm.Portfolio = domain.Portfolio{{
		Period: "day",
		Data:   domain.PeriodData{Volume: &vlm},
	}}

	client := &fakeVaultClient{
		stats: []domain.StatsVault{
			statsVault("0xaaa", "Alpha"),
			statsVault("0xbbb", "Beta"),
		},
		details: map[string]*domain.VaultDetails{
			"0xaaa": withVlm,
			"0xbbb": vaultDetails("0xbbb"),
		},
	}
	syncer := NewVaultSyncer(client, &fakeVaultStore{}, testMetrics())

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)

	var parsed string
	for _, entry := range hook.AllEntries() {
		if strings.HasPrefix(entry.Message, "Parsed metrics:") {
			parsed = entry.Message
		}
	}
	require.NotEmpty(t, parsed, "expected a parsed-metrics breakdown log")
	assert.Contains(t, parsed, "rows=2")
	assert.Contains(t, parsed, "vlm_day_non_null=1")
	assert.Contains(t, parsed, "max_drawdown_day_non_null=0")
}

func TestVaultSyncerPropagatesListingError(t *testing.T) {
	client := &fakeVaultClient{statsErr: errors.New("403 Forbidden")}
	syncer := NewVaultSyncer(client, &fakeVaultStore{}, testMetrics())

	_, err := syncer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch vault listing")
}

func TestVaultSyncerPropagatesStoreError(t *testing.T) {
	client := &fakeVaultClient{stats: []domain.StatsVault{statsVault("0xaaa", "Alpha")}}
	store := &fakeVaultStore{vaultErr: errors.New("connection refused")}
	syncer := NewVaultSyncer(client, store, testMetrics())

	_, err := syncer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert vaults")
}

type fakeRankingStore struct {
	n     int
	count int
	err   error
}

func (s *fakeRankingStore) Recompute(ctx context.Context, n int) (int, error) {
	s.n = n
	return s.count, s.err
}

func (s *fakeRankingStore) List(ctx context.Context) ([]domain.TopVault, error) {
	return nil, nil
}

func TestRankerRun(t *testing.T) {
	store := &fakeRankingStore{count: 42}
	ranker := NewRanker(store, testMetrics())

	count, err := ranker.Run(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.Equal(t, 500, store.n)
}

func TestRankerPropagatesError(t *testing.T) {
	store := &fakeRankingStore{err: errors.New("boom")}
	ranker := NewRanker(store, testMetrics())

	_, err := ranker.Run(context.Background(), 500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recompute top vaults")
}
