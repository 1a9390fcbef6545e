package entity

import "errors"

var (
	// ErrProviderNotReady is transient: the identity provider has not initialized yet.
	ErrProviderNotReady = errors.New("identity provider not ready")
	// ErrUnauthenticated means there is no session. The user is sent to onboarding.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrIncompleteDelegation means a session exists but a wallet is not delegated yet.
	ErrIncompleteDelegation = errors.New("wallet delegation incomplete")
)

// GateError returns the sentinel error describing a non-ready gate state, nil when ready.
func GateError(g GateState) error {
	switch g {
	case GateNotReady:
		return ErrProviderNotReady
	case GateUnauthenticated:
		return ErrUnauthenticated
	case GateIncomplete:
		return ErrIncompleteDelegation
	default:
		return nil
	}
}
