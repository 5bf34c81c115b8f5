package metrics

import "time"

// NopMetrics discards everything. Use it when metrics collection is disabled.
type NopMetrics struct{}

func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

func (m *NopMetrics) ObserveOperation(op, result string, took time.Duration) {}
func (m *NopMetrics) AddPledged(lamports int64)                            {}
func (m *NopMetrics) AddWithdrawn(lamports int64)                          {}
func (m *NopMetrics) IncEventsPublished(kind, result string)               {}

var _ Metrics = (*NopMetrics)(nil)
