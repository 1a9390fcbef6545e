package entity

// Linked account values reported by the identity provider.
const (
	LinkedAccountTypeWallet = "wallet"
	ChainTypeSolana         = "solana"
	ChainTypeEthereum       = "ethereum"
	// EmbeddedWalletClientType marks wallets held by the provider's embedded signer.
	EmbeddedWalletClientType = "privy"
)

// LinkedAccount is one account attached to an identity provider user.
type LinkedAccount struct {
	Type             string `json:"type"`
	ChainType        string `json:"chain_type,omitempty"`
	Address          string `json:"address,omitempty"`
	WalletClientType string `json:"wallet_client_type,omitempty"`
	Delegated        bool   `json:"delegated"`
}

// User is the provider's opaque user object. Only delegation data is read from it.
type User struct {
	ID             string          `json:"id"`
	LinkedAccounts []LinkedAccount `json:"linked_accounts"`
}

// ProviderSession is the identity provider's session as seen by this system.
type ProviderSession struct {
	Ready         bool  `json:"ready"`
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}
