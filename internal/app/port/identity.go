package port

import (
	"context"

	"crosschain_portfolio/internal/domain/entity"
)

// IdentityProvider is the external authentication service.
type IdentityProvider interface {
	// Ready reports whether the provider finished initializing.
	Ready() bool

	// SessionFromToken resolves an access token into the provider session.
	// A rejected token yields an unauthenticated session, not an error.
	SessionFromToken(ctx context.Context, token string) (entity.ProviderSession, error)
}
