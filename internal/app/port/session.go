package port

import (
	"context"

	"crosschain_portfolio/internal/domain/entity"
)

// PortfolioSession is the reactive state of one identity.
type PortfolioSession interface {
	ID() string
	State() entity.SessionState

	// Portfolio returns the aggregated view. With wait it blocks until both chains settled.
	Portfolio(ctx context.Context, wait bool) (entity.PortfolioView, error)
	Refresh()

	Subscribe() chan entity.SessionEvent
	Unsubscribe(ch chan entity.SessionEvent)
	Publish(kind entity.EventKind)
}

// SessionRegistry maps access tokens to sessions.
type SessionRegistry interface {
	Session(ctx context.Context, token string) (PortfolioSession, error)
}
