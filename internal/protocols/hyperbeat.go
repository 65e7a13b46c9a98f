package protocols

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"vaultscan/internal/domain"
	"vaultscan/internal/evm"
)

var hyperbeatVaults = []namedVault{
	{"HYPE Vault", "0x96c6cbb6251ee1c257b2162ca0f39aa5fa44b1fb"},
	{"UBTC Vault", "0xc061d38903b99ac12713b550c2cb44b221674f94"},
	{"USDT Vault", "0x5e105266db42f78fa814322bce7f388b4c2e61eb"},
	{"XAUt Vault", "0x6EB6724D8D3D4FF9E24d872E8c38403169dC05f8"},
	{"LST Vault", "0x81e064d0eB539de7c3170EDF38C1A42CBd752A76"},
	{"liquidHYPE", "0x441794d6a8f9a3739f5d4e98a728937b33489d29"},
	{"Ventuals VLP", "0xD66d69c288d9a6FD735d7bE8b2e389970fC4fD42"},
	{"dnHYPE", "0x949a7250Bb55Eb79BC6bCC97fcD1C473DB3e6F29"},
	{"dnPUMP", "0x8858A307a85982c2B3CB2AcE1720237f2f09c39B"},
	{"USDC Vault", "0x057ced81348D57Aad579A672d521d7b4396E8a61"},
	{"wNLP", "0x4Cc221cf1444333510a634CE0D8209D2D11B9bbA"},
}

// HyperbeatAdapter reads the fixed set of Hyperbeat yield vaults.
type HyperbeatAdapter struct {
	caller *evm.Caller
}

// NewHyperbeat creates the Hyperbeat adapter.
func NewHyperbeat(caller *evm.Caller) *HyperbeatAdapter {
	return &HyperbeatAdapter{caller: caller}
}

// Name identifies the adapter in logs and metrics.
func (a *HyperbeatAdapter) Name() string {
	return domain.SourceHyperbeat.String()
}

// Fetch reads every vault, skipping and logging the ones that fail.
func (a *HyperbeatAdapter) Fetch(ctx context.Context) ([]domain.RawPool, error) {
	rows := make([]domain.RawPool, 0, len(hyperbeatVaults))
	for _, vault := range hyperbeatVaults {
		if err := a.caller.Throttle(ctx); err != nil {
			return rows, err
		}
		row, err := fetchVaultRow(ctx, a.caller, domain.SourceHyperbeat, "Hyperbeat", vault.name, common.HexToAddress(vault.address))
		if err != nil {
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			logrus.Warnf("Hyperbeat: skipping vault %s: %v", vault.name, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
