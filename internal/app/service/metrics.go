package service

import (
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
)

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(entity.Chain, string, time.Duration) {}
func (nopMetrics) CacheLookup(entity.Chain, string)                 {}
func (nopMetrics) StaleResponseDiscarded(entity.Chain)              {}
func (nopMetrics) GateEvaluated(entity.GateState)                   {}
func (nopMetrics) SessionsActive(int)                               {}

func orNopMetrics(m port.Metrics) port.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
