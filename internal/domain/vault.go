package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Float decodes a JSON value that the Hyperliquid API serializes either
// as a number or as a quoted numeric string ("tvl": "123.45").
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var err error
		s, err = strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("unquote numeric string %s: %w", string(b), err)
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse numeric value %s: %w", string(b), err)
	}
	*f = Float(v)
	return nil
}

// Value returns the underlying float64.
func (f Float) Value() float64 {
	return float64(f)
}

// Ptr returns a *float64 for a possibly-nil Float pointer.
func (f *Float) Ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

// VaultSummary is the per-vault summary object returned both by the
// /info vaultSummaries request and nested inside stats-snapshot items.
type VaultSummary struct {
	VaultAddress     string `json:"vaultAddress"`
	Name             string `json:"name"`
	Leader           string `json:"leader"`
	TVL              *Float `json:"tvl"`
	IsClosed         bool   `json:"isClosed"`
	RelationshipType string `json:"relationshipType"`
	CreateTimeMillis *Float `json:"createTimeMillis"`
	Description      string `json:"description"`
}

// VaultRelationship describes a vault's parent/child linkage.
type VaultRelationship struct {
	Type string `json:"type"`
}

// StatsVault is one item of the stats-snapshot vault listing. Fields
// appear either at the top level or inside Summary depending on the
// endpoint revision, so accessors apply the summary-first fallback.
type StatsVault struct {
	Summary          *VaultSummary      `json:"summary"`
	VaultAddress     string             `json:"vaultAddress"`
	Name             string             `json:"name"`
	Leader           string             `json:"leader"`
	Description      string             `json:"description"`
	IsClosed         bool               `json:"isClosed"`
	Relationship     *VaultRelationship `json:"relationship"`
	CreateTimeMillis *Float             `json:"createTimeMillis"`
	APR              *Float             `json:"apr"`
}

// Address returns the vault address, preferring the summary field.
func (v *StatsVault) Address() string {
	if v.Summary != nil && v.Summary.VaultAddress != "" {
		return v.Summary.VaultAddress
	}
	return v.VaultAddress
}

// HistoryPoint is one [timestamp_ms, value] pair of a portfolio
// history array. Values arrive as numeric strings.
type HistoryPoint struct {
	TimeMillis int64
	Value      float64
}

// UnmarshalJSON implements json.Unmarshaler for the pair encoding.
func (h *HistoryPoint) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("decode history point: %w", err)
	}
	if len(pair) < 2 {
		return fmt.Errorf("history point has %d elements, want 2", len(pair))
	}
	var ts Float
	if err := json.Unmarshal(pair[0], &ts); err != nil {
		return fmt.Errorf("decode history timestamp: %w", err)
	}
	var v Float
	if err := json.Unmarshal(pair[1], &v); err != nil {
		return fmt.Errorf("decode history value: %w", err)
	}
	h.TimeMillis = int64(ts)
	h.Value = float64(v)
	return nil
}

// PeriodData is the per-window body of a portfolio entry.
type PeriodData struct {
	AccountValueHistory []HistoryPoint `json:"accountValueHistory"`
	PnLHistory          []HistoryPoint `json:"pnlHistory"`
	Volume              *Float         `json:"vlm"`
}

// PortfolioPeriod is one ["day"|"week"|"month"|"allTime", {...}] pair.
type PortfolioPeriod struct {
	Period string
	Data   PeriodData
}

// UnmarshalJSON implements json.Unmarshaler for the pair encoding.
func (p *PortfolioPeriod) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("decode portfolio period: %w", err)
	}
	if len(pair) < 2 {
		return fmt.Errorf("portfolio period has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Period); err != nil {
		return fmt.Errorf("decode portfolio period key: %w", err)
	}
	if err := json.Unmarshal(pair[1], &p.Data); err != nil {
		return fmt.Errorf("decode portfolio period body: %w", err)
	}
	return nil
}

// Portfolio is the rolling-window performance history of a vault.
type Portfolio []PortfolioPeriod

// Window returns the data for a named period, or nil when absent.
func (pf Portfolio) Window(period string) *PeriodData {
	for i := range pf {
		if pf[i].Period == period {
			return &pf[i].Data
		}
	}
	return nil
}

// VaultFollower is one depositor entry of a vault details response.
type VaultFollower struct {
	User        string `json:"user"`
	VaultEquity *Float `json:"vaultEquity"`
}

// VaultDetails is the /info vaultDetails response.
type VaultDetails struct {
	Name             string             `json:"name"`
	VaultAddress     string             `json:"vaultAddress"`
	Leader           string             `json:"leader"`
	Description      string             `json:"description"`
	APR              *Float             `json:"apr"`
	LeaderCommission *Float             `json:"leaderCommission"`
	MaxDistributable *Float             `json:"maxDistributable"`
	MaxWithdrawable  *Float             `json:"maxWithdrawable"`
	IsClosed         bool               `json:"isClosed"`
	Relationship     *VaultRelationship `json:"relationship"`
	Followers        []VaultFollower    `json:"followers"`
	Portfolio        Portfolio          `json:"portfolio"`
}

// Vault is a row of the vaults table (slow-changing identity).
type Vault struct {
	VaultAddress     string
	Name             *string
	LeaderAddress    *string
	Description      *string
	RelationshipType *string
	IsClosed         bool
	TVLUSD           *float64
	VaultCreateTime  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VaultMetric is a row of the vault_metrics time-series table, keyed
// by (Time, VaultAddress).
type VaultMetric struct {
	Time         time.Time
	VaultAddress string

	MaxDistributableTVL *float64
	APR                 *float64
	LeaderCommission    *float64
	FollowerCount       *int

	PnLDay     *float64
	PnLWeek    *float64
	PnLMonth   *float64
	PnLAllTime *float64

	VlmDay     *float64
	VlmWeek    *float64
	VlmMonth   *float64
	VlmAllTime *float64

	MaxDrawdownDay     *float64
	MaxDrawdownWeek    *float64
	MaxDrawdownMonth   *float64
	MaxDrawdownAllTime *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TopVault is a row of the fully-recomputed top_vaults leaderboard.
type TopVault struct {
	VaultAddress string
	Rank         int
	TVLUSD       *float64
	MetricsTime  time.Time
	UpdatedAt    time.Time
}
