package transform

import (
	"math"
	"math/big"
)

const (
	secondsPerYear = 31536000

	rayScale       = 1e27
	oracleScale    = 1e8
	priceFeedScale = 1e18
)

// RayToAPY converts an Aave-style per-second ray rate (1e27 scale) to a
// compounded annual percentage yield.
func RayToAPY(rate *big.Int) float64 {
	if rate == nil || rate.Sign() == 0 {
		return 0
	}
	ray, _ := new(big.Float).SetInt(rate).Float64()
	perSec := ray / rayScale / secondsPerYear
	return (math.Pow(1+perSec, secondsPerYear) - 1) * 100
}

// OraclePriceUSD converts an 8-decimal oracle answer to a USD price.
func OraclePriceUSD(answer *big.Int) float64 {
	if answer == nil {
		return 0
	}
	v, _ := new(big.Float).SetInt(answer).Float64()
	return v / oracleScale
}

// FeedPriceUSD converts an 18-decimal price feed answer to a USD price.
func FeedPriceUSD(answer *big.Int) float64 {
	if answer == nil {
		return 0
	}
	v, _ := new(big.Float).SetInt(answer).Float64()
	return v / priceFeedScale
}

// FromTokenUnits converts a raw token amount to a decimal value using
// the token's decimals.
func FromTokenUnits(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	v, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return v
}

// ReserveConfig is the unpacked Aave reserve configuration bitmap.
type ReserveConfig struct {
	LTV                  float64
	LiquidationThreshold float64
	LiquidationBonus     float64
	Decimals             int
}

// DecodeReserveConfig unpacks the reserve configuration word: bits
// [0:16) LTV, [16:32) liquidation threshold, [32:48) liquidation bonus,
// all in basis points, and [48:56) token decimals. Masking is done on
// big.Int because the word carries flag bits above 64.
func DecodeReserveConfig(data *big.Int) ReserveConfig {
	if data == nil {
		return ReserveConfig{}
	}
	mask16 := big.NewInt(0xFFFF)
	field := func(shift uint, mask *big.Int) int64 {
		return new(big.Int).And(new(big.Int).Rsh(data, shift), mask).Int64()
	}
	return ReserveConfig{
		LTV:                  float64(field(0, mask16)) / 100.0,
		LiquidationThreshold: float64(field(16, mask16)) / 100.0,
		LiquidationBonus:     float64(field(32, mask16)) / 100.0,
		Decimals:             int(field(48, big.NewInt(0xFF))),
	}
}
