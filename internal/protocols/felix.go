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

// Felix CDP branch risk parameters are fixed by the protocol: minimum
// collateral ratio 110% implies a max LTV of 1/1.10.
const (
	felixCDPLTV                  = 90.90
	felixCDPLiquidationThreshold = 110.0
)

type felixCDPMarket struct {
	collateral string
	activePool string
	priceFeed  string
}

// Liquity-v2-style CDP branches, one per collateral.
var felixCDPMarkets = []felixCDPMarket{
	{ // WHYPE
		collateral: "0x5555555555555555555555555555555555555555",
		activePool: "0x39ebba742b6917d49d4a9ac7cf5c70f84d34cc9e",
		priceFeed:  "0x12a1868b89789900e413a6241ca9032dd1873a51",
	},
	{ // UBTC
		collateral: "0x9fdbda0a5e284c32744d2f17ee5c74b284993463",
		activePool: "0x8d99575ebbbda038a626ca769561c16fdd7a5939",
		priceFeed:  "0xf59f338424062dd1d44a9b4dd2721128a45358ab",
	},
	{ // kHYPE
		collateral: "0xfd739d4e423301ce9385c1fb8850539d657c296d",
		activePool: "0xbfd0b103a49faf426f36864d19f5d871bf411a5a",
		priceFeed:  "0x0a04e685f12e47b22b03c3763add63f1dd73265c",
	},
	{ // wstHYPE
		collateral: "0x94e8396e0869c9f2200760af0621afd240e1cf38",
		activePool: "0x7abca40474d6b5f000f801d7fe7e0df4c89425ff",
		priceFeed:  "0x067e69ad6bdb8ee95cac31b34626f48eb6f169a2",
	},
}

type namedVault struct {
	name    string
	address string
}

// MetaMorpho-style lending vaults.
var felixLendingVaults = []namedVault{
	{"USDe Vault", "0x835febf893c6dddee5cf762b0f8e31c5b06938ab"},
	{"USDT0 Vault", "0xfc5126377f0efc0041c0969ef9ba903ce67d151e"},
	{"USDT0 (Frontier)", "0x9896a8605763106e57a51aa0a97fe8099e806bb3"},
	{"USDhl Vault", "0x9c59a9389d8f72DE2CdAf1126f36EA4790E2275e"},
	{"USDhl (Frontier)", "0x66c71204B70aE27BE6dC3eb41F9aF5868E68fDb6"},
	{"HYPE Vault", "0x2900ABd73631b2f60747e687095537B673c06A76"},
}

// FelixAdapter reads the Felix CDP branches and lending vaults.
type FelixAdapter struct {
	caller *evm.Caller
}

// NewFelix creates the Felix adapter.
func NewFelix(caller *evm.Caller) *FelixAdapter {
	return &FelixAdapter{caller: caller}
}

// Name identifies the adapter in logs and metrics.
func (a *FelixAdapter) Name() string {
	return domain.SourceFelix.String()
}

// Fetch reads all CDP branches then all lending vaults. Failed markets
// are skipped and logged.
func (a *FelixAdapter) Fetch(ctx context.Context) ([]domain.RawPool, error) {
	rows := make([]domain.RawPool, 0, len(felixCDPMarkets)+len(felixLendingVaults))

	for _, market := range felixCDPMarkets {
		if err := a.caller.Throttle(ctx); err != nil {
			return rows, err
		}
		row, err := a.fetchCDP(ctx, market)
		if err != nil {
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			logrus.Warnf("Felix: skipping CDP market %s: %v", market.collateral, err)
			continue
		}
		rows = append(rows, row)
	}

	for _, vault := range felixLendingVaults {
		if err := a.caller.Throttle(ctx); err != nil {
			return rows, err
		}
		row, err := fetchVaultRow(ctx, a.caller, domain.SourceFelix, "Felix", vault.name, common.HexToAddress(vault.address))
		if err != nil {
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			logrus.Warnf("Felix: skipping lending vault %s: %v", vault.name, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *FelixAdapter) fetchCDP(ctx context.Context, market felixCDPMarket) (domain.RawPool, error) {
	var zero domain.RawPool

	collateral := common.HexToAddress(market.collateral)
	activePool := common.HexToAddress(market.activePool)
	priceFeed := common.HexToAddress(market.priceFeed)

	symbol, err := a.caller.String(ctx, collateral, evm.ERC20ABI, "symbol")
	if err != nil {
		return zero, err
	}
	decimals, err := a.caller.Uint8(ctx, collateral, evm.ERC20ABI, "decimals")
	if err != nil {
		return zero, err
	}
	balanceRaw, err := a.caller.BigInt(ctx, collateral, evm.ERC20ABI, "balanceOf", activePool)
	if err != nil {
		return zero, err
	}

	priceRaw, err := a.caller.BigInt(ctx, priceFeed, evm.PriceFeedABI, "fetchPrice")
	if err != nil {
		if evm.IsRateLimited(err) || ctx.Err() != nil {
			return zero, err
		}
		priceRaw, err = a.caller.BigInt(ctx, priceFeed, evm.PriceFeedABI, "lastGoodPrice")
		if err != nil {
			return zero, err
		}
	}

	// The stablecoin debt is 18-decimal regardless of collateral.
	debtUSD := 0.0
	debtRaw, err := a.caller.BigInt(ctx, activePool, evm.ActivePoolABI, "getFeUSDDebt")
	if err != nil && !evm.IsRateLimited(err) && ctx.Err() == nil {
		debtRaw, err = a.caller.BigInt(ctx, activePool, evm.ActivePoolABI, "getSystemDebt")
	}
	if err == nil {
		debtUSD = transform.FromTokenUnits(debtRaw, 18)
	} else if evm.IsRateLimited(err) || ctx.Err() != nil {
		return zero, err
	}

	priceUSD := transform.FeedPriceUSD(priceRaw)
	tvlUSD := transform.FromTokenUnits(balanceRaw, int(decimals)) * priceUSD

	utilization := 0.0
	if tvlUSD > 0 {
		utilization = debtUSD / tvlUSD * 100
	}

	flt := 0.0
	ltv := felixCDPLTV
	liqThreshold := felixCDPLiquidationThreshold
	dec := int(decimals)
	return domain.RawPool{
		Source:               domain.SourceFelix,
		Protocol:             "Felix",
		PoolID:               collateral.Hex(),
		Name:                 fmt.Sprintf("Felix %s CDP", symbol),
		Symbol:               symbol,
		ContractAddress:      activePool.Hex(),
		TVLUSD:               &tvlUSD,
		TotalDebtUSD:         &debtUSD,
		UtilizationRate:      &utilization,
		APYBase:              &flt,
		APYReward:            &flt,
		APYTotal:             &flt,
		APYBorrowVariable:    &flt,
		LTV:                  &ltv,
		LiquidationThreshold: &liqThreshold,
		LiquidationBonus:     &flt,
		Decimals:             &dec,
	}, nil
}
