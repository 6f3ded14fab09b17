// Package coordinator manages user-context lifecycle: it reconciles the
// running goroutine pools against the stage table's targets and reacts to
// runtime scenario selection changes.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cadence/internal/core"
	"cadence/internal/pacing"
	"cadence/internal/progress"
	"cadence/internal/scenario"
)

const (
	// reconcileInterval is how often pool sizes are checked against the
	// stage table's current targets.
	reconcileInterval = 100 * time.Millisecond

	// inactivePoll is how long an idle user context sleeps before
	// re-checking whether its scenario was re-activated.
	inactivePoll = 1 * time.Second
)

// Coordinator spawns and stops user-context goroutines per scenario. Targets
// come from the registry every tick, so admin-driven selection changes take
// effect within one reconcile interval.
type Coordinator struct {
	registry *scenario.Registry
	reporter core.Reporter
	limiter  *pacing.RateLimiter
	runCfg   core.RunnerConfig

	wg          sync.WaitGroup
	activeCount atomic.Int32

	mu    sync.Mutex
	pools map[string]*pool
}

// pool tracks the stoppable goroutines of one scenario.
type pool struct {
	mu        sync.Mutex
	stopChans []chan struct{}
}

func NewCoordinator(registry *scenario.Registry, reporter core.Reporter) *Coordinator {
	return &Coordinator{
		registry: registry,
		reporter: reporter,
		pools:    make(map[string]*pool),
	}
}

// SetRateLimiter installs a run-wide request rate cap applied before every
// iteration.
func (c *Coordinator) SetRateLimiter(rl *pacing.RateLimiter) {
	c.limiter = rl
}

// SetRunnerConfig applies iteration limits and warmup to every spawned user.
func (c *Coordinator) SetRunnerConfig(cfg core.RunnerConfig) {
	c.runCfg = cfg
}

// ActiveUsers returns the number of currently running user contexts.
func (c *Coordinator) ActiveUsers() int {
	return int(c.activeCount.Load())
}

// Wait blocks until all user-context goroutines have exited.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Run drives the load until ctx is cancelled or every stage window has
// closed. loops maps scenario ids to their user behavior; scenarios without
// an entry are ignored even when a stage names them.
func (c *Coordinator) Run(ctx context.Context, loops map[string]core.UserLoop, prog *progress.Progress) {
	printMsg := func(format string, args ...interface{}) {
		if prog != nil {
			prog.Printf(format, args...)
		} else {
			fmt.Printf(format+"\n", args...)
		}
	}

	total := c.totalDuration()
	printMsg("Starting run: %d stages, window: %v, active scenarios: %v",
		len(c.registry.Stages()), total, c.registry.Active())

	start := time.Now()
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stopAll()
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			if total > 0 && elapsed >= total {
				c.stopAll()
				return
			}
			for id, loop := range loops {
				c.reconcile(ctx, id, loop, c.registry.TargetFor(id, elapsed))
			}
		}
	}
}

// RunShape drives a fixed shape instead of the stage table: every active
// scenario gets the shape's user count until the shape reports no further
// change. Smoke mode runs this with a short bounded shape.
func (c *Coordinator) RunShape(ctx context.Context, shape scenario.Shape, loops map[string]core.UserLoop) {
	start := time.Now()
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stopAll()
			return
		case <-ticker.C:
			users, _, ok := shape.Tick(time.Since(start))
			if !ok {
				c.stopAll()
				return
			}
			for id, loop := range loops {
				target := 0
				if c.registry.IsActive(id) {
					target = users
				}
				c.reconcile(ctx, id, loop, target)
			}
			// With iteration limits every user exits on its own;
			// don't respawn completed ones, just drain.
			if c.runCfg.MaxIterations > 0 && c.ActiveUsers() == 0 && time.Since(start) > reconcileInterval {
				return
			}
		}
	}
}

// totalDuration is the end of the last stage window; runtime selection
// changes shift who runs, not how long the run lasts.
func (c *Coordinator) totalDuration() time.Duration {
	var total time.Duration
	for _, st := range c.registry.Stages() {
		if st.Duration > total {
			total = st.Duration
		}
	}
	return total
}

func (c *Coordinator) pool(id string) *pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[id]
	if !ok {
		p = &pool{}
		c.pools[id] = p
	}
	return p
}

// reconcile grows or shrinks one scenario's pool toward target. Spawned
// users that exit on their own (iteration limit, exhaustion) leave a stale
// stop channel behind; it is closed harmlessly on the next shrink.
func (c *Coordinator) reconcile(ctx context.Context, id string, loop core.UserLoop, target int) {
	p := c.pool(id)
	p.mu.Lock()
	current := len(p.stopChans)
	p.mu.Unlock()

	for i := current; i < target; i++ {
		c.spawn(ctx, p, id, loop)
	}
	if current > target {
		p.stop(current - target)
	}
}

func (c *Coordinator) spawn(ctx context.Context, p *pool, scenarioID string, loop core.UserLoop) {
	stopCh := make(chan struct{})
	userID := uuid.NewString()
	c.activeCount.Add(1)
	c.wg.Add(1)

	p.mu.Lock()
	p.stopChans = append(p.stopChans, stopCh)
	p.mu.Unlock()

	go func() {
		defer func() {
			c.wg.Done()
			c.activeCount.Add(-1)
		}()
		defer c.recoverPanic(userID, scenarioID)
		runner := core.NewRunner(loop, c.reporter, userID, c.runCfg)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			default:
			}
			if !c.registry.IsActive(scenarioID) {
				if err := core.Sleep(ctx, inactivePoll); err != nil {
					return
				}
				continue
			}
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return
				}
			}
			if err := runner.RunIteration(ctx); err != nil {
				if errors.Is(err, core.ErrMaxIterationsReached) {
					return // clean exit
				}
				return // exhaustion or cancellation
			}
		}
	}()
}

// recoverPanic reports a user goroutine panic as a failed event so it shows
// up in the results instead of killing the process.
func (c *Coordinator) recoverPanic(userID, scenarioID string) {
	if r := recover(); r != nil {
		c.reporter.Report(core.Event{
			UserID:      userID,
			Timestamp:   time.Now(),
			Scenario:    scenarioID,
			Transaction: "panic",
			Success:     false,
			Error:       fmt.Sprintf("panic: %v", r),
		})
	}
}

func (p *pool) stop(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > len(p.stopChans) {
		n = len(p.stopChans)
	}
	for i := 0; i < n; i++ {
		close(p.stopChans[i])
	}
	p.stopChans = p.stopChans[n:]
}

func (c *Coordinator) stopAll() {
	c.mu.Lock()
	pools := make([]*pool, 0, len(c.pools))
	for _, p := range c.pools {
		pools = append(pools, p)
	}
	c.mu.Unlock()

	for _, p := range pools {
		p.mu.Lock()
		for _, ch := range p.stopChans {
			close(ch)
		}
		p.stopChans = nil
		p.mu.Unlock()
	}
}
