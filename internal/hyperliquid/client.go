// Package hyperliquid fetches vault listings and per-vault details
// from the Hyperliquid info and stats endpoints.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"vaultscan/internal/domain"
)

const defaultDetailsConcurrency = 10

// Client talks to the Hyperliquid HTTP API.
type Client struct {
	infoURL    string
	statsURL   string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	InfoURL  string
	StatsURL string
	Timeout  time.Duration
}

// NewClient creates a Hyperliquid API client with retrying transport.
func NewClient(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil
	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	}
	return &Client{
		infoURL:    opts.InfoURL,
		statsURL:   opts.StatsURL,
		httpClient: retryClient.StandardClient(),
	}
}

// FetchAllStats retrieves the full vault listing from the stats
// snapshot. This is the canonical list: the info endpoint is
// geo-blocked in some regions while the snapshot is not.
func (c *Client) FetchAllStats(ctx context.Context) ([]domain.StatsVault, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching vault stats snapshot: %s", c.statsURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching vault stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stats API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var vaults []domain.StatsVault
	if err := json.NewDecoder(resp.Body).Decode(&vaults); err != nil {
		return nil, fmt.Errorf("error decoding vault stats: %w", err)
	}
	logrus.Debugf("Received %d vaults from stats snapshot", len(vaults))
	return vaults, nil
}

// FetchVaultSummaries retrieves the vault summary listing from the
// info endpoint.
func (c *Client) FetchVaultSummaries(ctx context.Context) ([]domain.VaultSummary, error) {
	var summaries []domain.VaultSummary
	if err := c.postInfo(ctx, map[string]string{"type": "vaultSummaries"}, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// FetchVaultDetails retrieves granular data for one vault.
func (c *Client) FetchVaultDetails(ctx context.Context, vaultAddress string) (*domain.VaultDetails, error) {
	var details domain.VaultDetails
	err := c.postInfo(ctx, map[string]string{
		"type":         "vaultDetails",
		"vaultAddress": vaultAddress,
	}, &details)
	if err != nil {
		return nil, err
	}
	return &details, nil
}

// FetchVaultDetailsBatch fetches details for many vaults with bounded
// concurrency. Vaults whose fetch fails are logged and left out of the
// result; the details of the rest still come back.
func (c *Client) FetchVaultDetailsBatch(ctx context.Context, addresses []string, concurrency int64) (map[string]*domain.VaultDetails, error) {
	if concurrency <= 0 {
		concurrency = defaultDetailsConcurrency
	}
	sem := semaphore.NewWeighted(concurrency)

	var (
		mu  sync.Mutex
		out = make(map[string]*domain.VaultDetails, len(addresses))
	)
	for _, addr := range addresses {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(addr string) {
			defer sem.Release(1)
			details, err := c.FetchVaultDetails(ctx, addr)
			if err != nil {
				logrus.Warnf("Skipping vault %s: %v", addr, err)
				return
			}
			mu.Lock()
			out[addr] = details
			mu.Unlock()
		}(addr)
	}
	// Draining the semaphore waits for all in-flight fetches.
	if err := sem.Acquire(ctx, concurrency); err != nil {
		return nil, err
	}
	sem.Release(concurrency)

	logrus.Debugf("Fetched details for %d/%d vaults", len(out), len(addresses))
	return out, nil
}

func (c *Client) postInfo(ctx context.Context, payload any, into any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding info request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling info endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("info API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("error decoding info response: %w", err)
	}
	return nil
}
