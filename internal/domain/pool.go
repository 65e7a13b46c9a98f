package domain

import "time"

// RawPool is the canonical normalized row every pool adapter emits.
// Numeric fields are pointers so that "no data" is distinguishable from
// "value is zero" downstream; adapters that genuinely measured a zero
// set an explicit zero.
type RawPool struct {
	Source   Source
	Protocol string

	// PoolID is the cross-source identifier: an aggregator-assigned
	// pool id, or the asset/vault contract address for on-chain rows.
	PoolID string

	Name             string
	Symbol           string
	ContractAddress  string
	UnderlyingSymbol string

	TVLUSD          *float64
	TotalDebtUSD    *float64
	UtilizationRate *float64

	APYBase           *float64
	APYReward         *float64
	APYTotal          *float64
	APYBorrowVariable *float64
	APYBorrowStable   *float64

	LTV                  *float64
	LiquidationThreshold *float64
	LiquidationBonus     *float64
	ReserveFactor        *float64
	Decimals             *int

	// Timestamp is the raw upstream epoch value (seconds or
	// milliseconds, disambiguated by the row builder). Nil when the
	// source supplies no timestamp.
	Timestamp *float64
}

// EvmPool is a row of the evm_pools table (slow-changing identity).
type EvmPool struct {
	PoolID          string
	Source          string
	Protocol        *string
	Name            *string
	Symbol          *string
	ContractAddress *string
	AcceptsUSDC     bool

	LTV                  *float64
	LiquidationThreshold *float64
	LiquidationBonus     *float64
	ReserveFactor        *float64
	Decimals             *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvmPoolMetric is a row of the evm_pool_metrics time-series table,
// keyed by (Time, PoolID).
type EvmPoolMetric struct {
	Time   time.Time
	PoolID string

	TVLUSD            *float64
	APYBase           *float64
	APYReward         *float64
	APYTotal          *float64
	APYBorrowVariable *float64
	APYBorrowStable   *float64
	TotalDebtUSD      *float64
	UtilizationRate   *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
