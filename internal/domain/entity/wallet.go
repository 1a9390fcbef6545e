package entity

// WalletPair holds the delegated wallets of one identity. Either half may be empty.
type WalletPair struct {
	SolanaWallet string `json:"solanaWallet,omitempty"`
	EVMWallet    string `json:"evmWallet,omitempty"`
}

// Complete reports whether both wallets are present.
func (w WalletPair) Complete() bool {
	return w.SolanaWallet != "" && w.EVMWallet != ""
}

// Address returns the wallet bound to the given chain.
func (w WalletPair) Address(chain Chain) string {
	switch {
	case chain.IsSolana():
		return w.SolanaWallet
	case chain.IsEVM():
		return w.EVMWallet
	default:
		return ""
	}
}
