package entity

// AuthState is derived from the provider session on every change.
type AuthState struct {
	ProviderReady   bool `json:"providerReady"`
	Authenticated   bool `json:"authenticated"`
	SolanaDelegated bool `json:"solanaDelegated"`
	EVMDelegated    bool `json:"evmDelegated"`
}

// CanEnter reports whether the authenticated application may render.
func (s AuthState) CanEnter() bool {
	return s.ProviderReady && s.Authenticated && s.SolanaDelegated && s.EVMDelegated
}

// GateState is the Auth Gate's decision.
type GateState int

const (
	GateNotReady GateState = iota
	GateUnauthenticated
	GateIncomplete
	GateReady
)

func (g GateState) String() string {
	switch g {
	case GateNotReady:
		return "not_ready"
	case GateUnauthenticated:
		return "unauthenticated"
	case GateIncomplete:
		return "authenticated_incomplete"
	case GateReady:
		return "authenticated_ready"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (g GateState) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// View is the UI branch a gate state selects.
type View string

const (
	ViewShell      View = "shell"
	ViewOnboarding View = "onboarding"
	ViewApp        View = "app"
)

// View maps a gate state to the branch that renders. Unauthenticated and
// incomplete delegation share the onboarding view.
func (g GateState) View() View {
	switch g {
	case GateReady:
		return ViewApp
	case GateUnauthenticated, GateIncomplete:
		return ViewOnboarding
	default:
		return ViewShell
	}
}

// RouteDecision is the outcome of gating one path.
type RouteDecision struct {
	Gate     GateState `json:"gate"`
	View     View      `json:"view"`
	Redirect string    `json:"redirect,omitempty"`
}

// SessionState is everything derived from one provider session. It is comparable,
// so an unchanged recomputation can be detected with ==.
type SessionState struct {
	Auth    AuthState  `json:"auth"`
	Gate    GateState  `json:"gate"`
	Wallets WalletPair `json:"wallets"`
}
