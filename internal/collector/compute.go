package collector

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics is the computed summary of a run.
type Metrics struct {
	TotalRequests  int64                          `json:"total_requests"`
	SuccessCount   int64                          `json:"success_count"`
	FailureCount   int64                          `json:"failure_count"`
	SuccessRate    float64                        `json:"success_rate"`
	RequestsPerSec float64                        `json:"requests_per_sec"`
	TestDuration   time.Duration                  `json:"test_duration_ns"`
	BytesSent      int64                          `json:"bytes_sent"`
	BytesRecv      int64                          `json:"bytes_recv"`
	Duration       DurationMetrics                `json:"duration"`
	Transactions   map[string]*TransactionMetrics `json:"transactions"`
}

// DurationMetrics are latency percentiles from the HDR histogram.
type DurationMetrics struct {
	Min time.Duration `json:"min_ns"`
	Avg time.Duration `json:"avg_ns"`
	P50 time.Duration `json:"p50_ns"`
	P90 time.Duration `json:"p90_ns"`
	P95 time.Duration `json:"p95_ns"`
	P99 time.Duration `json:"p99_ns"`
	Max time.Duration `json:"max_ns"`
}

// TransactionMetrics summarize one transaction name.
type TransactionMetrics struct {
	Count    int64           `json:"count"`
	Success  int64           `json:"success"`
	Failed   int64           `json:"failed"`
	Duration DurationMetrics `json:"duration"`
}

// Compute produces the metrics summary from the aggregated histograms.
func (c *Collector) Compute() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := &Metrics{
		TotalRequests: c.overall.count,
		SuccessCount:  c.overall.success,
		FailureCount:  c.overall.failed,
		TestDuration:  c.Duration(),
		BytesSent:     c.overall.bytesSent,
		BytesRecv:     c.overall.bytesRecv,
		Transactions:  make(map[string]*TransactionMetrics, len(c.transactions)),
	}

	if m.TotalRequests > 0 {
		m.SuccessRate = float64(m.SuccessCount) / float64(m.TotalRequests) * 100
		m.Duration = durationMetrics(c.overall.hist)
	}
	if m.TestDuration > 0 {
		m.RequestsPerSec = float64(m.TotalRequests) / m.TestDuration.Seconds()
	}

	for name, agg := range c.transactions {
		m.Transactions[name] = &TransactionMetrics{
			Count:    agg.count,
			Success:  agg.success,
			Failed:   agg.failed,
			Duration: durationMetrics(agg.hist),
		}
	}
	return m
}

func durationMetrics(h *hdrhistogram.Histogram) DurationMetrics {
	if h.TotalCount() == 0 {
		return DurationMetrics{}
	}
	toDuration := func(micros int64) time.Duration {
		return time.Duration(micros) * time.Microsecond
	}
	return DurationMetrics{
		Min: toDuration(h.Min()),
		Avg: time.Duration(h.Mean()) * time.Microsecond,
		P50: toDuration(h.ValueAtQuantile(50)),
		P90: toDuration(h.ValueAtQuantile(90)),
		P95: toDuration(h.ValueAtQuantile(95)),
		P99: toDuration(h.ValueAtQuantile(99)),
		Max: toDuration(h.Max()),
	}
}
