// Package core defines the fundamental interfaces and types for Cadence.
package core

import (
	"context"
	"time"
)

// Event represents a single measurement from a user context's transaction.
type Event struct {
	UserID      string
	Timestamp   time.Time
	Scenario    string
	Transaction string
	Duration    time.Duration
	Success     bool
	Error       string
	StatusCode  int
	BytesSent   int64 // Request size for throughput metrics
	BytesRecv   int64 // Response size for throughput metrics
}

// UserLoop is one simulated user's behavior, executed once per iteration.
// Implementations must be safe for concurrent use by many user contexts.
type UserLoop interface {
	RunIteration(ctx context.Context, userID string, iteration int, rep Reporter) error
}

// Reporter is the interface user contexts use to send events to the Collector.
type Reporter interface {
	Report(Event)
}

// NullReporter discards all events (used during warmup).
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(Event) {}
