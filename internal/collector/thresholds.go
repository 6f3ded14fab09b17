package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Thresholds define pass/fail criteria for the run.
type Thresholds struct {
	Duration *DurationThresholds `yaml:"duration"`
	Failed   *FailureThresholds  `yaml:"failed"`
}

// DurationThresholds define latency limits; zero values are unchecked.
type DurationThresholds struct {
	Avg time.Duration `yaml:"avg"`
	P50 time.Duration `yaml:"p50"`
	P90 time.Duration `yaml:"p90"`
	P95 time.Duration `yaml:"p95"`
	P99 time.Duration `yaml:"p99"`
}

// FailureThresholds define the error-rate limit, e.g. "rate<0.01".
type FailureThresholds struct {
	Rate string `yaml:"rate"`
}

// ThresholdResult is the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Check evaluates all thresholds against computed metrics.
func (t *Thresholds) Check(m *Metrics) *ThresholdResults {
	if t == nil {
		return &ThresholdResults{Passed: true}
	}

	results := &ThresholdResults{
		Passed:  true,
		Results: make([]ThresholdResult, 0),
	}
	if t.Duration != nil {
		results.checkDurations(t.Duration, &m.Duration)
	}
	if t.Failed != nil && t.Failed.Rate != "" {
		results.checkFailureRate(t.Failed, m)
	}
	return results
}

func (r *ThresholdResults) checkDurations(t *DurationThresholds, d *DurationMetrics) {
	checks := []struct {
		name   string
		limit  time.Duration
		actual time.Duration
	}{
		{"duration.avg", t.Avg, d.Avg},
		{"duration.p50", t.P50, d.P50},
		{"duration.p90", t.P90, d.P90},
		{"duration.p95", t.P95, d.P95},
		{"duration.p99", t.P99, d.P99},
	}
	for _, check := range checks {
		if check.limit == 0 {
			continue
		}
		r.add(ThresholdResult{
			Name:      check.name,
			Passed:    check.actual < check.limit,
			Threshold: FormatDuration(check.limit),
			Actual:    FormatDuration(check.actual),
		})
	}
}

func (r *ThresholdResults) checkFailureRate(t *FailureThresholds, m *Metrics) {
	// Accept "rate<0.01" or a bare number.
	spec := strings.TrimSpace(t.Rate)
	spec = strings.TrimPrefix(spec, "rate<")
	limit, err := strconv.ParseFloat(spec, 64)
	if err != nil {
		r.add(ThresholdResult{
			Name:      "failed.rate",
			Passed:    false,
			Threshold: t.Rate,
			Actual:    fmt.Sprintf("unparseable threshold: %v", err),
		})
		return
	}

	actual := 0.0
	if m.TotalRequests > 0 {
		actual = float64(m.FailureCount) / float64(m.TotalRequests)
	}
	r.add(ThresholdResult{
		Name:      "failed.rate",
		Passed:    actual < limit,
		Threshold: fmt.Sprintf("%.4f", limit),
		Actual:    fmt.Sprintf("%.4f", actual),
	})
}

func (r *ThresholdResults) add(result ThresholdResult) {
	if !result.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, result)
}
