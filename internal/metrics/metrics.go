// Package metrics records ledger activity.
package metrics

import "time"

// Metrics is what the service and relay report into.
type Metrics interface {
	ObserveOperation(op, result string, took time.Duration)
	AddPledged(lamports int64)
	AddWithdrawn(lamports int64)
	IncEventsPublished(kind, result string)
}
