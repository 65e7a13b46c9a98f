package protocols

import (
	"github.com/ethereum/go-ethereum/common"

	"vaultscan/internal/domain"
	"vaultscan/internal/evm"
)

var hyperlendProvider = common.HexToAddress("0x72c98246a98bFe64022a3190E7710E157497170C")

// NewHyperlend creates the adapter for the HyperLend lending market.
func NewHyperlend(caller *evm.Caller) *AaveAdapter {
	return &AaveAdapter{
		name:     domain.SourceHyperlend,
		protocol: "Hyperlend",
		provider: hyperlendProvider,
		caller:   caller,
	}
}
