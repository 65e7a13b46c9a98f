package protocols

import (
	"github.com/ethereum/go-ethereum/common"

	"vaultscan/internal/domain"
	"vaultscan/internal/evm"
)

var hypurrfiProvider = common.HexToAddress("0xA73ff12D177D8F1Ec938c3ba0e87D33524dD5594")

// NewHypurrfi creates the adapter for the HypurrFi lending market. The
// protocol is an Aave v3 fork, so it shares the reserve-walking logic
// with HyperLend.
func NewHypurrfi(caller *evm.Caller) *AaveAdapter {
	return &AaveAdapter{
		name:     domain.SourceHypurrfi,
		protocol: "HypurrFi",
		provider: hypurrfiProvider,
		caller:   caller,
	}
}
