package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllStats(t *testing.T) {
	payload := `[
		{"summary": {"vaultAddress": "0xaaa", "name": "Alpha", "tvl": "1000.5", "isClosed": false}, "apr": 0.12},
		{"vaultAddress": "0xbbb", "name": "Beta", "isClosed": true}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient(Options{StatsURL: srv.URL, Timeout: 5 * time.Second})
	vaults, err := c.FetchAllStats(context.Background())
	require.NoError(t, err)
	require.Len(t, vaults, 2)

	assert.Equal(t, "0xaaa", vaults[0].Address())
	require.NotNil(t, vaults[0].Summary.TVL)
	assert.Equal(t, 1000.5, vaults[0].Summary.TVL.Value())
	assert.Equal(t, "0xbbb", vaults[1].Address())
	assert.True(t, vaults[1].IsClosed)
}

func TestFetchVaultDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vaultDetails", body["type"])
		assert.Equal(t, "0xaaa", body["vaultAddress"])

		w.Write([]byte(`{
			"vaultAddress": "0xaaa",
			"name": "Alpha",
			"apr": "0.25",
			"maxDistributable": 5000,
			"followers": [{"user": "0x1", "vaultEquity": "10.5"}],
			"portfolio": [["day", {"accountValueHistory": [[1717200000000, "100"]], "pnlHistory": [], "vlm": "7"}]]
		}`))
	}))
	defer srv.Close()

	c := NewClient(Options{InfoURL: srv.URL})
	details, err := c.FetchVaultDetails(context.Background(), "0xaaa")
	require.NoError(t, err)

	assert.Equal(t, "Alpha", details.Name)
	assert.Equal(t, 0.25, details.APR.Value())
	assert.Equal(t, 5000.0, details.MaxDistributable.Value())
	require.Len(t, details.Followers, 1)
	assert.Equal(t, 10.5, details.Followers[0].VaultEquity.Value())
	require.NotNil(t, details.Portfolio.Window("day"))
	assert.Equal(t, 7.0, details.Portfolio.Window("day").Volume.Value())
}

func TestFetchVaultSummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vaultSummaries", body["type"])
		w.Write([]byte(`[{"vaultAddress": "0xaaa", "name": "Alpha", "tvl": "12"}]`))
	}))
	defer srv.Close()

	c := NewClient(Options{InfoURL: srv.URL})
	summaries, err := c.FetchVaultSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "0xaaa", summaries[0].VaultAddress)
}

func TestFetchVaultDetailsBatchSkipsFailures(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["vaultAddress"] == "0xbad" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"vaultAddress": body["vaultAddress"]})
	}))
	defer srv.Close()

	c := NewClient(Options{InfoURL: srv.URL})
	out, err := c.FetchVaultDetailsBatch(context.Background(), []string{"0xa", "0xbad", "0xb", "0xc"}, 2)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Contains(t, out, "0xa")
	assert.NotContains(t, out, "0xbad")
	assert.LessOrEqual(t, maxInFlight.Load(), int64(2))
}

func TestFetchAllStatsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Options{StatsURL: srv.URL})
	_, err := c.FetchAllStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
