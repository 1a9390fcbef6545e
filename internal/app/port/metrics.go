package port

import (
	"time"

	"crosschain_portfolio/internal/domain/entity"
)

// Metrics records portfolio service measurements.
type Metrics interface {
	ObserveFetch(chain entity.Chain, outcome string, took time.Duration)
	CacheLookup(chain entity.Chain, result string)
	StaleResponseDiscarded(chain entity.Chain)
	GateEvaluated(state entity.GateState)
	SessionsActive(n int)
}
