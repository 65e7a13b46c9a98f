package protocols

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"vaultscan/internal/domain"
	"vaultscan/internal/evm"
	"vaultscan/internal/transform"
)

// The HyperLend price oracle doubles as shared pricing infrastructure
// for the standalone vault protocols.
var sharedOracle = common.HexToAddress("0xC9Fb4fbE842d57EAc1dF3e641a281827493A630e")

// fetchVaultRow reads one ERC-4626 vault and prices its holdings via
// the shared oracle. Vaults that are plain tokens rather than 4626
// wrappers fall back to pricing the vault token itself, and a missing
// oracle feed degrades to a zero price rather than an error.
func fetchVaultRow(ctx context.Context, caller *evm.Caller, source domain.Source, protocol, displayName string, vault common.Address) (domain.RawPool, error) {
	var zero domain.RawPool

	symbol, err := caller.String(ctx, vault, evm.ERC4626ABI, "symbol")
	if err != nil {
		return zero, err
	}

	underlying := vault
	isVault := true
	if addr, err := caller.Address(ctx, vault, evm.ERC4626ABI, "asset"); err == nil {
		underlying = addr
	} else if evm.IsRateLimited(err) || ctx.Err() != nil {
		return zero, err
	} else {
		isVault = false
	}

	var underlyingSymbol string
	var decimals uint8
	if isVault {
		decimals, err = caller.Uint8(ctx, underlying, evm.ERC20ABI, "decimals")
		if err != nil {
			return zero, err
		}
		underlyingSymbol, err = caller.String(ctx, underlying, evm.ERC20ABI, "symbol")
		if err != nil {
			return zero, err
		}
	} else {
		decimals, err = caller.Uint8(ctx, vault, evm.ERC4626ABI, "decimals")
		if err != nil {
			return zero, err
		}
		underlyingSymbol = symbol
	}

	balanceRaw, err := caller.BigInt(ctx, vault, evm.ERC4626ABI, "totalAssets")
	if err != nil {
		if evm.IsRateLimited(err) || ctx.Err() != nil {
			return zero, err
		}
		balanceRaw, err = caller.BigInt(ctx, vault, evm.ERC4626ABI, "totalSupply")
		if err != nil {
			return zero, err
		}
	}

	priceUSD := 0.0
	if priceRaw, err := caller.BigInt(ctx, sharedOracle, evm.PriceOracleABI, "getAssetPrice", underlying); err == nil {
		priceUSD = transform.OraclePriceUSD(priceRaw)
	} else if evm.IsRateLimited(err) || ctx.Err() != nil {
		return zero, err
	}

	tvlUSD := transform.FromTokenUnits(balanceRaw, int(decimals)) * priceUSD

	flt := 0.0
	dec := int(decimals)
	return domain.RawPool{
		Source:               source,
		Protocol:             protocol,
		PoolID:               vault.Hex(),
		Name:                 displayName,
		Symbol:               symbol,
		ContractAddress:      vault.Hex(),
		UnderlyingSymbol:     underlyingSymbol,
		TVLUSD:               &tvlUSD,
		TotalDebtUSD:         &flt,
		UtilizationRate:      &flt,
		APYBase:              &flt,
		APYReward:            &flt,
		APYTotal:             &flt,
		APYBorrowVariable:    &flt,
		LTV:                  &flt,
		LiquidationThreshold: &flt,
		LiquidationBonus:     &flt,
		Decimals:             &dec,
	}, nil
}
