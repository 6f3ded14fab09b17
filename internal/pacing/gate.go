// Package pacing enforces request-rate targets: a per-timer constant
// throughput gate and a dynamic requests-per-second limiter.
package pacing

import (
	"context"
	"sync"
	"time"

	"cadence/internal/core"
)

type timerState struct {
	mu    sync.Mutex
	last  time.Time
	count int64
}

// Gate enforces a target requests-per-minute rate per named timer. The whole
// wait-then-stamp sequence runs under the timer's mutex, so concurrent
// callers sharing a timer id are serialized: the timer is a global rate cap
// across all user contexts issuing that transaction, not a per-user cap.
type Gate struct {
	mu     sync.Mutex
	timers map[string]*timerState

	clock core.Clock
	sleep func(context.Context, time.Duration) error
}

// NewGate creates a gate using the real clock.
func NewGate() *Gate {
	return NewGateWithClock(core.RealClock{}, core.Sleep)
}

// NewGateWithClock creates a gate with injectable time operations (for testing).
func NewGateWithClock(clock core.Clock, sleep func(context.Context, time.Duration) error) *Gate {
	return &Gate{
		timers: make(map[string]*timerState),
		clock:  clock,
		sleep:  sleep,
	}
}

// Wait blocks until dispatching another request on timerID keeps the rate at
// or below requestsPerMinute. The first call for a timer id returns
// immediately. Returns early with the context's error on cancellation,
// leaving the timer's last dispatch stamp untouched.
func (g *Gate) Wait(ctx context.Context, requestsPerMinute float64, timerID string) error {
	if requestsPerMinute <= 0 {
		return nil
	}

	g.mu.Lock()
	t, ok := g.timers[timerID]
	if !ok {
		t = &timerState{}
		g.timers[timerID] = t
	}
	g.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	interval := time.Duration(float64(time.Minute) / requestsPerMinute)
	if !t.last.IsZero() {
		if elapsed := g.clock.Since(t.last); elapsed < interval {
			if err := g.sleep(ctx, interval-elapsed); err != nil {
				return err
			}
		}
	}
	t.last = g.clock.Now()
	t.count++
	return nil
}

// Count returns how many dispatches the timer has stamped.
func (g *Gate) Count(timerID string) int64 {
	g.mu.Lock()
	t, ok := g.timers[timerID]
	g.mu.Unlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
