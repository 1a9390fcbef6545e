package entity

// NetworkDefinition holds the configuration of one chain the portfolio reads from.
type NetworkDefinition struct {
	Chain              Chain    `json:"chain" yaml:"chain"`
	ChainID            uint64   `json:"chainId,omitempty" yaml:"chainId,omitempty"` // zero for Solana
	Name               string   `json:"name" yaml:"name"`
	Identifier         string   `json:"identifier" yaml:"identifier"` // also names the token list file
	NativeSymbol       string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	NativeName         string   `json:"nativeName" yaml:"nativeName"`
	Decimals           uint8    `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL      string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs    []string `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL   string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	DEXScreenerChainID string   `json:"dexScreenerChainId" yaml:"dexScreenerChainId"`

	// WrappedNativeTokenAddress prices the native asset (WETH on Arbitrum, wSOL on Solana).
	WrappedNativeTokenAddress string `json:"wrappedNativeTokenAddress" yaml:"wrappedNativeTokenAddress"`
}

// RPCURLs returns the primary endpoint followed by the fallbacks.
func (n NetworkDefinition) RPCURLs() []string {
	urls := make([]string, 0, 1+len(n.FallbackRPCURLs))
	if n.PrimaryRPCURL != "" {
		urls = append(urls, n.PrimaryRPCURL)
	}
	return append(urls, n.FallbackRPCURLs...)
}

// SolanaNativeAddress is the address native SOL is listed under. It is the system
// program id, so it never collides with an SPL mint such as wrapped SOL.
const SolanaNativeAddress = "11111111111111111111111111111111"
