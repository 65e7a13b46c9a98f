package transform

import (
	"strings"
	"time"

	"vaultscan/internal/domain"
)

// AcceptsUSDC reports whether a pool takes USDC deposits, judged by a
// case-insensitive substring match. The underlying token symbol is
// preferred over the pool symbol when present.
func AcceptsUSDC(poolSymbol, underlyingSymbol string) bool {
	symbol := poolSymbol
	if underlyingSymbol != "" {
		symbol = underlyingSymbol
	}
	return strings.Contains(strings.ToLower(symbol), "usdc")
}

// BuildPoolRows converts merged raw pools to entity rows. Rows without
// a pool identifier are dropped.
func BuildPoolRows(pools []domain.RawPool, now time.Time) []domain.EvmPool {
	rows := make([]domain.EvmPool, 0, len(pools))
	for _, p := range pools {
		if p.PoolID == "" {
			continue
		}
		rows = append(rows, domain.EvmPool{
			PoolID:               p.PoolID,
			Source:               p.Source.String(),
			Protocol:             strPtr(p.Protocol),
			Name:                 strPtr(p.Name),
			Symbol:               strPtr(p.Symbol),
			ContractAddress:      strPtr(p.ContractAddress),
			AcceptsUSDC:          AcceptsUSDC(p.Symbol, p.UnderlyingSymbol),
			LTV:                  p.LTV,
			LiquidationThreshold: p.LiquidationThreshold,
			LiquidationBonus:     p.LiquidationBonus,
			ReserveFactor:        p.ReserveFactor,
			Decimals:             p.Decimals,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}
	return rows
}

// BuildPoolMetricRows converts merged raw pools to time-series rows.
// Rows without a pool identifier are dropped; rows without a timestamp
// get the current time.
func BuildPoolMetricRows(pools []domain.RawPool, now time.Time) []domain.EvmPoolMetric {
	rows := make([]domain.EvmPoolMetric, 0, len(pools))
	for _, p := range pools {
		if p.PoolID == "" {
			continue
		}
		rows = append(rows, domain.EvmPoolMetric{
			Time:              ToUTCTime(p.Timestamp),
			PoolID:            p.PoolID,
			TVLUSD:            p.TVLUSD,
			TotalDebtUSD:      p.TotalDebtUSD,
			UtilizationRate:   p.UtilizationRate,
			APYBase:           p.APYBase,
			APYReward:         p.APYReward,
			APYTotal:          p.APYTotal,
			APYBorrowVariable: p.APYBorrowVariable,
			APYBorrowStable:   p.APYBorrowStable,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return rows
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
