package service

import (
	"strings"

	"crosschain_portfolio/internal/domain/entity"
)

// ResolveWallets extracts the delegated embedded wallets of a user. It returns false
// when no delegated wallet exists yet; otherwise either half may still be empty.
func ResolveWallets(user *entity.User) (entity.WalletPair, bool) {
	if user == nil {
		return entity.WalletPair{}, false
	}

	var pair entity.WalletPair
	for _, acc := range user.LinkedAccounts {
		if !isDelegatedEmbeddedWallet(acc) {
			continue
		}
		switch strings.ToLower(acc.ChainType) {
		case entity.ChainTypeSolana:
			if pair.SolanaWallet == "" {
				pair.SolanaWallet = acc.Address
			}
		case entity.ChainTypeEthereum:
			if pair.EVMWallet == "" {
				pair.EVMWallet = acc.Address
			}
		}
	}

	if pair.SolanaWallet == "" && pair.EVMWallet == "" {
		return entity.WalletPair{}, false
	}
	return pair, true
}

// DelegationFlags reports which chains have a delegated embedded wallet.
func DelegationFlags(user *entity.User) (solana, evm bool) {
	pair, ok := ResolveWallets(user)
	if !ok {
		return false, false
	}
	return pair.SolanaWallet != "", pair.EVMWallet != ""
}

// DeriveAuthState computes the gate input from a provider session.
func DeriveAuthState(s entity.ProviderSession) entity.AuthState {
	state := entity.AuthState{
		ProviderReady: s.Ready,
		Authenticated: s.Ready && s.Authenticated && s.User != nil,
	}
	if state.Authenticated {
		state.SolanaDelegated, state.EVMDelegated = DelegationFlags(s.User)
	}
	return state
}

func isDelegatedEmbeddedWallet(acc entity.LinkedAccount) bool {
	return acc.Type == entity.LinkedAccountTypeWallet &&
		acc.WalletClientType == entity.EmbeddedWalletClientType &&
		acc.Delegated &&
		acc.Address != ""
}
