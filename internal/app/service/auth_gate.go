package service

import (
	"path"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
)

// AuthGate decides which view renders for an auth state. It holds no state of its own,
// every call re-evaluates from the input.
type AuthGate struct {
	entryPath   string
	landingPath string
	metrics     port.Metrics
}

// NewAuthGate creates a gate. The entry path always redirects to the landing path.
func NewAuthGate(entryPath, landingPath string, metrics port.Metrics) *AuthGate {
	if entryPath == "" {
		entryPath = "/"
	}
	if landingPath == "" {
		landingPath = "/chat"
	}
	return &AuthGate{entryPath: entryPath, landingPath: landingPath, metrics: orNopMetrics(metrics)}
}

// Evaluate maps an auth state onto the gate state machine.
func (g *AuthGate) Evaluate(s entity.AuthState) entity.GateState {
	var state entity.GateState
	switch {
	case !s.ProviderReady:
		state = entity.GateNotReady
	case !s.Authenticated:
		state = entity.GateUnauthenticated
	case !s.SolanaDelegated || !s.EVMDelegated:
		state = entity.GateIncomplete
	default:
		state = entity.GateReady
	}
	g.metrics.GateEvaluated(state)
	return state
}

// Route gates a request path. The entry path redirects in every state; while the
// provider is not ready every other path renders the shell.
func (g *AuthGate) Route(p string, s entity.AuthState) entity.RouteDecision {
	state := g.Evaluate(s)
	decision := entity.RouteDecision{Gate: state, View: state.View()}
	if cleanPath(p) == g.entryPath {
		decision.Redirect = g.landingPath
	}
	return decision
}

// LandingPath is where the entry path redirects to.
func (g *AuthGate) LandingPath() string { return g.landingPath }

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
