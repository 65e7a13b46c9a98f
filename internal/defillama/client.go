// Package defillama fetches Hyperliquid-ecosystem pool yields from the
// DefiLlama yields API.
package defillama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"vaultscan/internal/domain"
)

// Chains of the Hyperliquid ecosystem, matched case-insensitively
// against the pool's chain field.
var ecosystemChains = map[string]struct{}{
	"hyperliquid": {},
	"hyperevm":    {},
}

// Client fetches pool listings from the yields endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a DefiLlama yields client with retrying transport.
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
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: retryClient.StandardClient(),
	}
}

// Name identifies the adapter in logs and metrics.
func (c *Client) Name() string {
	return domain.SourceDefiLlama.String()
}

type llamaPool struct {
	Pool       string   `json:"pool"`
	Project    string   `json:"project"`
	Chain      string   `json:"chain"`
	Symbol     string   `json:"symbol"`
	PoolMeta   string   `json:"poolMeta"`
	Address    string   `json:"address"`
	TVLUSD     *float64 `json:"tvlUsd"`
	APYBase    *float64 `json:"apyBase"`
	APYReward  *float64 `json:"apyReward"`
	APY        *float64 `json:"apy"`
	Timestamp  *float64 `json:"timestamp"`
	Underlying []string `json:"underlyingTokens"`
}

// Fetch retrieves all pools and keeps the Hyperliquid-ecosystem rows.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawPool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching pools from DefiLlama: %s", c.baseURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching pools from DefiLlama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("DefiLlama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data []llamaPool `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding DefiLlama response: %w", err)
	}

	pools := make([]domain.RawPool, 0)
	for _, p := range response.Data {
		if _, ok := ecosystemChains[strings.ToLower(p.Chain)]; !ok {
			continue
		}
		pools = append(pools, toRawPool(p))
	}

	logrus.Debugf("Received %d ecosystem pools from DefiLlama", len(pools))
	return pools, nil
}

func toRawPool(p llamaPool) domain.RawPool {
	row := domain.RawPool{
		Source:    domain.SourceDefiLlama,
		Protocol:  p.Project,
		PoolID:    p.Pool,
		Name:      p.Symbol,
		Symbol:    p.Symbol,
		TVLUSD:    p.TVLUSD,
		APYBase:   p.APYBase,
		APYReward: p.APYReward,
		APYTotal:  p.APY,
		Timestamp: p.Timestamp,
	}
	// poolMeta is the closest thing the endpoint has to a display name.
	if p.PoolMeta != "" {
		row.Name = p.PoolMeta
	}
	row.ContractAddress = p.Address
	if row.ContractAddress == "" && len(p.Underlying) > 0 {
		row.ContractAddress = p.Underlying[0]
	}
	return row
}
