package transform

import (
	"time"

	"vaultscan/internal/domain"
)

// ExtractAddresses returns the unique vault addresses of a stats
// listing, preserving first-seen order.
func ExtractAddresses(vaults []domain.StatsVault) []string {
	seen := make(map[string]struct{}, len(vaults))
	addrs := make([]string, 0, len(vaults))
	for i := range vaults {
		addr := vaults[i].Address()
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}
	return addrs
}

// BuildVaultRows converts a stats listing to vault entity rows. Items
// without an address are dropped. Fields present both at the top level
// and inside the summary resolve summary-first, except the description
// where the top-level text is the richer one.
func BuildVaultRows(vaults []domain.StatsVault, now time.Time) []domain.Vault {
	rows := make([]domain.Vault, 0, len(vaults))
	for i := range vaults {
		v := &vaults[i]
		addr := v.Address()
		if addr == "" {
			continue
		}
		s := v.Summary
		if s == nil {
			s = &domain.VaultSummary{}
		}
		row := domain.Vault{
			VaultAddress:     addr,
			Name:             strPtr(coalesce(s.Name, v.Name)),
			LeaderAddress:    strPtr(coalesce(s.Leader, v.Leader)),
			Description:      strPtr(coalesce(v.Description, s.Description)),
			RelationshipType: strPtr(relationshipType(v)),
			IsClosed:         s.IsClosed || v.IsClosed,
			TVLUSD:           s.TVL.Ptr(),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if ms := firstFloat(v.CreateTimeMillis, s.CreateTimeMillis); ms != nil {
			t := MillisToUTCTime(int64(*ms))
			row.VaultCreateTime = &t
		}
		rows = append(rows, row)
	}
	return rows
}

// Portfolio window keys as the vault details endpoint names them.
const (
	windowDay     = "day"
	windowWeek    = "week"
	windowMonth   = "month"
	windowAllTime = "allTime"
)

// BuildVaultMetricRows converts vault details to time-series rows. The
// row time is the newest account-value sample of the day window,
// falling back to now so the key is never null.
func BuildVaultMetricRows(details []domain.VaultDetails, now time.Time) []domain.VaultMetric {
	rows := make([]domain.VaultMetric, 0, len(details))
	for i := range details {
		d := &details[i]
		if d.VaultAddress == "" {
			continue
		}
		// The ranking metric is never null: an absent maxDistributable
		// persists as zero.
		maxDist := 0.0
		if d.MaxDistributable != nil {
			maxDist = d.MaxDistributable.Value()
		}
		row := domain.VaultMetric{
			Time:                metricTime(d.Portfolio, now),
			VaultAddress:        d.VaultAddress,
			MaxDistributableTVL: &maxDist,
			APR:                 d.APR.Ptr(),
			LeaderCommission:    d.LeaderCommission.Ptr(),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if d.Followers != nil {
			n := len(d.Followers)
			row.FollowerCount = &n
		}
		row.PnLDay, row.VlmDay, row.MaxDrawdownDay = windowStats(d.Portfolio, windowDay)
		row.PnLWeek, row.VlmWeek, row.MaxDrawdownWeek = windowStats(d.Portfolio, windowWeek)
		row.PnLMonth, row.VlmMonth, row.MaxDrawdownMonth = windowStats(d.Portfolio, windowMonth)
		row.PnLAllTime, row.VlmAllTime, row.MaxDrawdownAllTime = windowStats(d.Portfolio, windowAllTime)
		rows = append(rows, row)
	}
	return rows
}

// metricTime picks the freshest sample timestamp, preferring the day
// window and pnl history over account values, and falls back to now.
func metricTime(pf domain.Portfolio, now time.Time) time.Time {
	for _, period := range []string{windowDay, windowWeek, windowMonth, windowAllTime} {
		w := pf.Window(period)
		if w == nil {
			continue
		}
		if n := len(w.PnLHistory); n > 0 {
			return MillisToUTCTime(w.PnLHistory[n-1].TimeMillis)
		}
		if n := len(w.AccountValueHistory); n > 0 {
			return MillisToUTCTime(w.AccountValueHistory[n-1].TimeMillis)
		}
	}
	return now
}

func windowStats(pf domain.Portfolio, period string) (pnl, vlm, drawdown *float64) {
	w := pf.Window(period)
	if w == nil {
		return nil, nil, nil
	}
	if n := len(w.PnLHistory); n > 0 {
		v := w.PnLHistory[n-1].Value
		pnl = &v
	}
	vlm = w.Volume.Ptr()
	values := make([]float64, len(w.AccountValueHistory))
	for i, p := range w.AccountValueHistory {
		values[i] = p.Value
	}
	drawdown = MaxDrawdown(values)
	return pnl, vlm, drawdown
}

func relationshipType(v *domain.StatsVault) string {
	if v.Relationship != nil && v.Relationship.Type != "" {
		return v.Relationship.Type
	}
	if v.Summary != nil {
		return v.Summary.RelationshipType
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...*domain.Float) *domain.Float {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
