package core

import "context"

// RunnerConfig controls iteration-level execution behavior.
type RunnerConfig struct {
	MaxIterations int // 0 = unlimited
	WarmupIters   int // iterations before metrics count (per user context)
}

// Runner controls iteration-level execution for a single user context.
// A Runner is NOT safe for concurrent use; each user goroutine must have its own.
type Runner struct {
	loop      UserLoop
	reporter  Reporter
	userID    string
	config    RunnerConfig
	iteration int
}

// NewRunner creates a Runner for one user context.
func NewRunner(loop UserLoop, reporter Reporter, userID string, config RunnerConfig) *Runner {
	return &Runner{
		loop:     loop,
		reporter: reporter,
		userID:   userID,
		config:   config,
	}
}

// RunIteration executes one complete script iteration.
// Returns nil on success, ErrMaxIterationsReached when the limit is hit,
// or the loop's error (data exhaustion terminates the user context's run).
func (r *Runner) RunIteration(ctx context.Context) error {
	if r.config.MaxIterations > 0 && r.iteration >= r.config.MaxIterations {
		return ErrMaxIterationsReached
	}

	rep := r.reporter
	if r.iteration < r.config.WarmupIters {
		rep = NullReporter
	}

	r.iteration++
	return r.loop.RunIteration(ctx, r.userID, r.iteration, rep)
}

// Iteration returns the number of completed iterations.
func (r *Runner) Iteration() int {
	return r.iteration
}

// IsWarmup returns true if still in the warmup phase.
func (r *Runner) IsWarmup() bool {
	return r.iteration < r.config.WarmupIters
}
