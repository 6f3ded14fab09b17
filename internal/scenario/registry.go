// Package scenario tracks which logical scenarios are active and computes
// concurrency targets from the stage table over elapsed run time.
package scenario

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"
)

// ErrEmptySelection is returned when an activation request names no
// scenarios. The active set is left unchanged.
var ErrEmptySelection = errors.New("select at least one scenario")

// Stage is static configuration for one scenario's load: how many users it
// contributes, over which window, and how fast they ramp in.
type Stage struct {
	Scenario string        `yaml:"scenario"`
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"` // steady window measured from run start
	Users    int           `yaml:"users"`
	RampUp   time.Duration `yaml:"rampUp"`
}

// Shape is the scheduler's periodic callback: target total concurrency and
// spawn rate for the elapsed run time. ok=false means "no further change"
// and tells the scheduler to stop adjusting.
type Shape interface {
	Tick(elapsed time.Duration) (users int, spawnRate float64, ok bool)
}

// Registry holds the stage table (read-only) and the mutable set of active
// scenario ids. The set is replaced wholesale, never merged.
type Registry struct {
	stages []Stage

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry creates a registry with nothing active; scenarios are switched
// on through the activation interface.
func NewRegistry(stages []Stage) *Registry {
	return &Registry{
		stages: stages,
		active: make(map[string]struct{}),
	}
}

// Stages returns the stage table.
func (r *Registry) Stages() []Stage {
	return r.stages
}

// SetActive replaces the active set wholesale. An empty selection is
// rejected and the prior set kept.
func (r *Registry) SetActive(ids []string) error {
	if len(ids) == 0 {
		return ErrEmptySelection
	}
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	r.mu.Lock()
	r.active = next
	r.mu.Unlock()
	return nil
}

// Active returns the active scenario ids, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// IsActive reports whether the scenario is in the active set.
func (r *Registry) IsActive(id string) bool {
	r.mu.Lock()
	_, ok := r.active[id]
	r.mu.Unlock()
	return ok
}

// ComputeTargets sums user contributions from the active stages at the given
// elapsed run time. An empty active set yields the idle state (0 users,
// spawn rate 1) so the scheduler keeps polling instead of terminating.
func (r *Registry) ComputeTargets(elapsed time.Duration) (int, float64) {
	r.mu.Lock()
	active := make(map[string]struct{}, len(r.active))
	for id := range r.active {
		active[id] = struct{}{}
	}
	r.mu.Unlock()

	total := 0
	spawnRate := 1.0

	for _, st := range r.stages {
		if _, ok := active[st.Scenario]; !ok {
			continue
		}
		contribution, counted := stageContribution(st, elapsed)
		if !counted {
			continue
		}
		total += contribution
		spawnRate = math.Max(spawnRate, stageSpawnRate(st))
	}
	return total, spawnRate
}

// TargetFor returns one scenario's user contribution at the given elapsed
// run time, 0 when inactive or past its window.
func (r *Registry) TargetFor(id string, elapsed time.Duration) int {
	if !r.IsActive(id) {
		return 0
	}
	for _, st := range r.stages {
		if st.Scenario != id {
			continue
		}
		if contribution, counted := stageContribution(st, elapsed); counted {
			return contribution
		}
	}
	return 0
}

// Tick implements Shape. The registry never signals completion: runtime
// reconfiguration can activate a scenario at any point.
func (r *Registry) Tick(elapsed time.Duration) (int, float64, bool) {
	users, rate := r.ComputeTargets(elapsed)
	return users, rate, true
}

// stageContribution returns the stage's user count at elapsed, and false
// when the stage's window is over (it then also stops counting toward the
// spawn rate).
func stageContribution(st Stage, elapsed time.Duration) (int, bool) {
	switch {
	case elapsed < st.RampUp:
		progress := elapsed.Seconds() / st.RampUp.Seconds()
		return int(progress * float64(st.Users)), true
	case elapsed < st.Duration:
		return st.Users, true
	default:
		return 0, false
	}
}

func stageSpawnRate(st Stage) float64 {
	if st.RampUp > 0 {
		return float64(st.Users) / st.RampUp.Seconds()
	}
	return float64(st.Users)
}

// SmokeShape is a bounded one-shot shape: a fixed handful of users for a
// short window, then "no further change" so the run stops adjusting.
type SmokeShape struct {
	Users  int
	Window time.Duration
}

// NewSmokeShape matches the smoke-mode defaults: 2 users for 10 seconds.
func NewSmokeShape() SmokeShape {
	return SmokeShape{Users: 2, Window: 10 * time.Second}
}

func (s SmokeShape) Tick(elapsed time.Duration) (int, float64, bool) {
	if elapsed < s.Window {
		return s.Users, float64(s.Users), true
	}
	return 0, 0, false
}
