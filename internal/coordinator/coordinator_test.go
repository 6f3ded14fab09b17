package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cadence/internal/core"
	"cadence/internal/scenario"
	"cadence/internal/vars"
)

// mockLoop counts iterations and can simulate work or failure.
type mockLoop struct {
	runCount atomic.Int32
	delay    time.Duration
	err      error

	mu    sync.Mutex
	users map[string]bool
}

func (m *mockLoop) RunIteration(ctx context.Context, userID string, iteration int, rep core.Reporter) error {
	m.runCount.Add(1)
	m.mu.Lock()
	if m.users == nil {
		m.users = make(map[string]bool)
	}
	m.users[userID] = true
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	rep.Report(core.Event{UserID: userID, Transaction: "mock", Success: true})
	return nil
}

func (m *mockLoop) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type countingReporter struct {
	events atomic.Int32
	mu     sync.Mutex
	last   core.Event
}

func (r *countingReporter) Report(e core.Event) {
	r.events.Add(1)
	r.mu.Lock()
	r.last = e
	r.mu.Unlock()
}

func newRegistry(t *testing.T, stages []scenario.Stage, active ...string) *scenario.Registry {
	t.Helper()
	reg := scenario.NewRegistry(stages)
	if len(active) > 0 {
		if err := reg.SetActive(active); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestCoordinator_SpawnsUsersForActiveScenario(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 3, Duration: 400 * time.Millisecond},
	}, "s1")
	rep := &countingReporter{}
	coord := NewCoordinator(reg, rep)

	loop := &mockLoop{delay: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	coord.Run(ctx, map[string]core.UserLoop{"s1": loop}, nil)
	coord.Wait()

	if loop.userCount() != 3 {
		t.Errorf("expected 3 distinct user ids, got %d", loop.userCount())
	}
	if loop.runCount.Load() < 3 {
		t.Errorf("expected at least 3 iterations, got %d", loop.runCount.Load())
	}
}

func TestCoordinator_InactiveScenarioGetsNoUsers(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 2, Duration: 300 * time.Millisecond},
		{Scenario: "s2", Users: 2, Duration: 300 * time.Millisecond},
	}, "s1")
	rep := &countingReporter{}
	coord := NewCoordinator(reg, rep)

	active := &mockLoop{delay: 5 * time.Millisecond}
	idle := &mockLoop{delay: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	coord.Run(ctx, map[string]core.UserLoop{"s1": active, "s2": idle}, nil)
	coord.Wait()

	if active.runCount.Load() == 0 {
		t.Error("expected active scenario to run")
	}
	if idle.runCount.Load() != 0 {
		t.Errorf("expected inactive scenario to be idle, ran %d times", idle.runCount.Load())
	}
}

func TestCoordinator_StopsAtEndOfStageWindow(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 2, Duration: 250 * time.Millisecond},
	}, "s1")
	coord := NewCoordinator(reg, &countingReporter{})

	loop := &mockLoop{delay: 5 * time.Millisecond}
	ctx := context.Background()

	start := time.Now()
	coord.Run(ctx, map[string]core.UserLoop{"s1": loop}, nil)
	coord.Wait()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("run did not stop at window end, took %v", elapsed)
	}
	if coord.ActiveUsers() != 0 {
		t.Errorf("expected 0 active users after run, got %d", coord.ActiveUsers())
	}
}

func TestCoordinator_RespectsContextCancellation(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 2, Duration: 10 * time.Second},
	}, "s1")
	coord := NewCoordinator(reg, &countingReporter{})

	loop := &mockLoop{delay: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		coord.Run(ctx, map[string]core.UserLoop{"s1": loop}, nil)
		coord.Wait()
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop after cancellation")
	}
}

func TestCoordinator_RuntimeSelectionChange(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 2, Duration: 2 * time.Second},
		{Scenario: "s2", Users: 2, Duration: 2 * time.Second},
	}, "s1")
	coord := NewCoordinator(reg, &countingReporter{})

	first := &mockLoop{delay: 5 * time.Millisecond}
	second := &mockLoop{delay: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		coord.Run(ctx, map[string]core.UserLoop{"s1": first, "s2": second}, nil)
		coord.Wait()
		close(done)
	}()

	time.Sleep(300 * time.Millisecond)
	if err := reg.SetActive([]string{"s2"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)
	cancel()
	<-done

	if first.runCount.Load() == 0 {
		t.Error("expected s1 to run before the switch")
	}
	if second.runCount.Load() == 0 {
		t.Error("expected s2 to run after the switch")
	}
}

func TestCoordinator_IterationLimit(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 2, Duration: 2 * time.Second},
	}, "s1")
	rep := &countingReporter{}
	coord := NewCoordinator(reg, rep)
	coord.SetRunnerConfig(core.RunnerConfig{MaxIterations: 3})

	loop := &mockLoop{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	coord.Run(ctx, map[string]core.UserLoop{"s1": loop}, nil)
	coord.Wait()

	// 2 users, 3 iterations each
	if got := loop.runCount.Load(); got != 6 {
		t.Errorf("expected exactly 6 iterations, got %d", got)
	}
}

func TestCoordinator_ExhaustionStopsUser(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 1, Duration: 2 * time.Second},
	}, "s1")
	coord := NewCoordinator(reg, &countingReporter{})

	loop := &mockLoop{err: vars.ErrExhausted}
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	coord.Run(ctx, map[string]core.UserLoop{"s1": loop}, nil)
	coord.Wait()

	// The user exits on the first exhausted iteration and is not restarted.
	if got := loop.runCount.Load(); got != 1 {
		t.Errorf("expected 1 iteration before exhaustion exit, got %d", got)
	}
}

func TestCoordinator_PanicReportedAsFailedEvent(t *testing.T) {
	reg := newRegistry(t, []scenario.Stage{
		{Scenario: "s1", Users: 1, Duration: 2 * time.Second},
	}, "s1")
	rep := &countingReporter{}
	coord := NewCoordinator(reg, rep)

	loop := panicLoop{}
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	coord.Run(ctx, map[string]core.UserLoop{"s1": loop}, nil)
	coord.Wait()

	rep.mu.Lock()
	last := rep.last
	rep.mu.Unlock()
	if last.Transaction != "panic" || last.Success {
		t.Errorf("expected failed panic event, got %+v", last)
	}
	if last.Scenario != "s1" {
		t.Errorf("expected scenario id on panic event, got %q", last.Scenario)
	}
}

type panicLoop struct{}

func (panicLoop) RunIteration(ctx context.Context, userID string, iteration int, rep core.Reporter) error {
	panic("boom")
}

func TestCoordinator_RunShapeSmoke(t *testing.T) {
	reg := newRegistry(t, nil, "s1")
	coord := NewCoordinator(reg, &countingReporter{})
	coord.SetRunnerConfig(core.RunnerConfig{MaxIterations: 1})

	loop := &mockLoop{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	shape := scenario.SmokeShape{Users: 2, Window: time.Second}
	coord.RunShape(ctx, shape, map[string]core.UserLoop{"s1": loop})
	coord.Wait()

	if got := loop.runCount.Load(); got != 2 {
		t.Errorf("expected 2 smoke iterations (one per user), got %d", got)
	}
}
