// Package protocols implements the on-chain pool adapters for the
// HyperEVM lending and vault protocols.
package protocols

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"vaultscan/internal/domain"
	"vaultscan/internal/evm"
	"vaultscan/internal/transform"
)

// AaveAdapter reads every reserve of an Aave-v3-style lending market
// discovered through its PoolAddressesProvider.
type AaveAdapter struct {
	name     domain.Source
	protocol string
	provider common.Address
	caller   *evm.Caller
}

// Name identifies the adapter in logs and metrics.
func (a *AaveAdapter) Name() string {
	return a.name.String()
}

// Fetch walks the reserve list and builds one row per asset. A reserve
// that fails is skipped and logged; discovery failures abort the whole
// adapter.
func (a *AaveAdapter) Fetch(ctx context.Context) ([]domain.RawPool, error) {
	pool, err := a.caller.Address(ctx, a.provider, evm.AddressesProviderABI, "getPool")
	if err != nil {
		return nil, fmt.Errorf("%s: resolve pool: %w", a.protocol, err)
	}
	oracle, err := a.caller.Address(ctx, a.provider, evm.AddressesProviderABI, "getPriceOracle")
	if err != nil {
		return nil, fmt.Errorf("%s: resolve oracle: %w", a.protocol, err)
	}
	reserves, err := a.caller.Addresses(ctx, pool, evm.LendingPoolABI, "getReservesList")
	if err != nil {
		return nil, fmt.Errorf("%s: list reserves: %w", a.protocol, err)
	}
	logrus.Debugf("%s: found %d reserves", a.protocol, len(reserves))

	rows := make([]domain.RawPool, 0, len(reserves))
	for _, asset := range reserves {
		if err := a.caller.Throttle(ctx); err != nil {
			return rows, err
		}
		row, err := a.fetchReserve(ctx, pool, oracle, asset)
		if err != nil {
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			logrus.Warnf("%s: skipping reserve %s: %v", a.protocol, asset.Hex(), err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *AaveAdapter) fetchReserve(ctx context.Context, pool, oracle, asset common.Address) (domain.RawPool, error) {
	var zero domain.RawPool

	data, err := a.caller.ReserveData(ctx, pool, asset)
	if err != nil {
		return zero, err
	}
	cfg := transform.DecodeReserveConfig(data.Configuration.Data)

	symbol, err := a.caller.String(ctx, asset, evm.ERC20ABI, "symbol")
	if err != nil {
		return zero, err
	}
	name, err := a.caller.String(ctx, asset, evm.ERC20ABI, "name")
	if err != nil {
		return zero, err
	}
	supplyRaw, err := a.caller.BigInt(ctx, data.ATokenAddress, evm.ERC20ABI, "totalSupply")
	if err != nil {
		return zero, err
	}
	debtRaw, err := a.caller.BigInt(ctx, data.VariableDebtTokenAddress, evm.ERC20ABI, "totalSupply")
	if err != nil {
		return zero, err
	}
	priceRaw, err := a.caller.BigInt(ctx, oracle, evm.PriceOracleABI, "getAssetPrice", asset)
	if err != nil {
		return zero, err
	}

	priceUSD := transform.OraclePriceUSD(priceRaw)
	tvlUSD := transform.FromTokenUnits(supplyRaw, cfg.Decimals) * priceUSD
	debtUSD := transform.FromTokenUnits(debtRaw, cfg.Decimals) * priceUSD

	utilization := 0.0
	if supplyRaw.Sign() > 0 {
		supply := transform.FromTokenUnits(supplyRaw, cfg.Decimals)
		debt := transform.FromTokenUnits(debtRaw, cfg.Decimals)
		utilization = debt / supply * 100
	}

	apyBase := transform.RayToAPY(data.CurrentLiquidityRate)
	apyBorrow := transform.RayToAPY(data.CurrentVariableBorrowRate)
	apyReward := 0.0
	apyTotal := apyBase + apyReward

	decimals := cfg.Decimals
	return domain.RawPool{
		Source:               a.name,
		Protocol:             a.protocol,
		PoolID:               asset.Hex(),
		Name:                 name,
		Symbol:               symbol,
		ContractAddress:      data.ATokenAddress.Hex(),
		TVLUSD:               &tvlUSD,
		TotalDebtUSD:         &debtUSD,
		UtilizationRate:      &utilization,
		APYBase:              &apyBase,
		APYReward:            &apyReward,
		APYTotal:             &apyTotal,
		APYBorrowVariable:    &apyBorrow,
		LTV:                  &cfg.LTV,
		LiquidationThreshold: &cfg.LiquidationThreshold,
		LiquidationBonus:     &cfg.LiquidationBonus,
		Decimals:             &decimals,
	}, nil
}
