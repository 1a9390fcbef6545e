package networkdefinition

import (
	"strings"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/infrastructure/configloader"
)

// NetworkDefinitionProvider provides the definitions of the chains the portfolio reads.
type NetworkDefinitionProvider struct {
	logger     port.Logger
	byChain    map[entity.Chain]entity.NetworkDefinition
	activeDefs []entity.NetworkDefinition
}

var _ port.NetworkDefinitionProvider = (*NetworkDefinitionProvider)(nil)

// Predefined network definitions
var (
	Solana = entity.NetworkDefinition{
		Chain:                     entity.ChainSolana,
		Name:                      "Solana Mainnet",
		Identifier:                "solana",
		NativeSymbol:              "SOL",
		NativeName:                "Solana",
		Decimals:                  9,
		PrimaryRPCURL:             "https://api.mainnet-beta.solana.com",
		BlockExplorerURL:          "https://solscan.io",
		DEXScreenerChainID:        "solana",
		WrappedNativeTokenAddress: "So11111111111111111111111111111111111111112", // wSOL
	}
	Arbitrum = entity.NetworkDefinition{
		Chain:                     entity.EVMChain(42161),
		ChainID:                   42161,
		Name:                      "Arbitrum One",
		Identifier:                "arbitrum",
		NativeSymbol:              "ETH",
		NativeName:                "Ether",
		Decimals:                  18,
		PrimaryRPCURL:             "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:           []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:          "https://arbiscan.io",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", // WETH on Arbitrum
	}
	Ethereum = entity.NetworkDefinition{
		Chain:                     entity.EVMChain(1),
		ChainID:                   1,
		Name:                      "Ethereum Mainnet",
		Identifier:                "ethereum",
		NativeSymbol:              "ETH",
		NativeName:                "Ether",
		Decimals:                  18,
		PrimaryRPCURL:             "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:          "https://etherscan.io",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
	}
	Base = entity.NetworkDefinition{
		Chain:                     entity.EVMChain(8453),
		ChainID:                   8453,
		Name:                      "Base Mainnet",
		Identifier:                "base",
		NativeSymbol:              "ETH",
		NativeName:                "Ether",
		Decimals:                  18,
		PrimaryRPCURL:             "https://1rpc.io/base",
		FallbackRPCURLs:           []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL:          "https://basescan.org",
		DEXScreenerChainID:        "base",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on Base
	}
)

var knownNetworks = []entity.NetworkDefinition{Solana, Arbitrum, Ethereum, Base}

// NewNetworkDefinitionProvider activates Solana and the configured EVM chain, applying
// RPC overrides from the config.
func NewNetworkDefinitionProvider(log port.Logger, evmChain entity.Chain, overrides []configloader.NetworkNodeConfig) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:  log,
		byChain: make(map[entity.Chain]entity.NetworkDefinition, len(knownNetworks)),
	}
	for _, def := range knownNetworks {
		// копия, чтобы overrides не трогали глобальные определения
		def.FallbackRPCURLs = append([]string(nil), def.FallbackRPCURLs...)
		p.byChain[def.Chain] = def
	}

	for _, o := range overrides {
		chain, err := entity.ParseChain(o.Chain)
		if err != nil {
			p.logger.Warn("Ignoring network override with unknown chain", "chain", o.Chain, "error", err)
			continue
		}
		def, ok := p.byChain[chain]
		if !ok {
			p.logger.Warn("Ignoring network override for a chain without definition", "chain", chain)
			continue
		}
		if url := strings.TrimSpace(o.RPCURL); url != "" {
			def.PrimaryRPCURL = url
		}
		if len(o.FallbackRPCURLs) > 0 {
			def.FallbackRPCURLs = append([]string(nil), o.FallbackRPCURLs...)
		}
		p.byChain[chain] = def
	}

	// Solana zawsze pierwsza, potem skonfigurowana sieć EVM
	for _, chain := range []entity.Chain{entity.ChainSolana, evmChain} {
		def, ok := p.byChain[chain]
		if !ok {
			p.logger.Error("No network definition for tracked chain", "chain", chain)
			continue
		}
		p.activeDefs = append(p.activeDefs, def)
		p.logger.Info("Network activated", "chain", def.Chain, "name", def.Name, "rpc_primary", def.PrimaryRPCURL)
	}
	return p
}

// GetAllNetworkDefinitions returns the active network definitions, Solana first.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	out := make([]entity.NetworkDefinition, len(p.activeDefs))
	copy(out, p.activeDefs)
	return out
}

// GetNetworkDefinition returns the definition of any known chain.
func (p *NetworkDefinitionProvider) GetNetworkDefinition(chain entity.Chain) (entity.NetworkDefinition, bool) {
	def, ok := p.byChain[chain]
	return def, ok
}
