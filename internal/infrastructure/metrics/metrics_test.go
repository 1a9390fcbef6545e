package metrics

import (
	"testing"
	"time"

	"crosschain_portfolio/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveFetch(entity.ChainSolana, "ok", 120*time.Millisecond)
	m.ObserveFetch(entity.ChainSolana, "ok", 80*time.Millisecond)
	m.StaleResponseDiscarded(entity.EVMChain(entity.ArbitrumChainID))
	m.GateEvaluated(entity.GateReady)
	m.SessionsActive(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("solana", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleDiscarded.WithLabelValues("evm:42161")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("authenticated_ready")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsActive))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
