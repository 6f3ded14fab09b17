// Package collector aggregates events from user contexts and computes
// run metrics.
package collector

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"cadence/internal/core"
)

// Histogram bounds: 1µs to 10min at 3 significant figures.
const (
	histogramMin = int64(1)
	histogramMax = int64(10 * time.Minute / time.Microsecond)
	histogramSig = 3
)

type transactionAgg struct {
	hist      *hdrhistogram.Histogram
	count     int64
	success   int64
	failed    int64
	bytesSent int64
	bytesRecv int64
}

func newTransactionAgg() *transactionAgg {
	return &transactionAgg{
		hist: hdrhistogram.New(histogramMin, histogramMax, histogramSig),
	}
}

// Collector receives events on a buffered channel and aggregates latencies
// into HDR histograms, overall and per transaction. Events are dropped
// rather than blocking reporters when the buffer is full.
type Collector struct {
	ch   chan core.Event
	done chan struct{}

	mu           sync.Mutex
	overall      *transactionAgg
	transactions map[string]*transactionAgg

	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its collection goroutine.
func NewCollector() *Collector {
	c := &Collector{
		ch:           make(chan core.Event, 1000),
		done:         make(chan struct{}),
		overall:      newTransactionAgg(),
		transactions: make(map[string]*transactionAgg),
		startTime:    time.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.record(c.overall, event)
		agg, ok := c.transactions[event.Transaction]
		if !ok {
			agg = newTransactionAgg()
			c.transactions[event.Transaction] = agg
		}
		c.record(agg, event)
		c.mu.Unlock()
	}
	close(c.done)
}

func (c *Collector) record(agg *transactionAgg, event core.Event) {
	agg.count++
	if event.Success {
		agg.success++
	} else {
		agg.failed++
	}
	agg.bytesSent += event.BytesSent
	agg.bytesRecv += event.BytesRecv

	micros := event.Duration.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}
	_ = agg.hist.RecordValue(micros)
}

// Report sends an event to the collector. Thread-safe.
func (c *Collector) Report(event core.Event) {
	select {
	case c.ch <- event:
	default:
	}
}

// Close stops accepting events and waits for the pending ones to drain.
func (c *Collector) Close() {
	c.endTime = time.Now()
	close(c.ch)
	<-c.done
}

// Duration returns the test duration so far, or start-to-close once closed.
func (c *Collector) Duration() time.Duration {
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// Snapshot returns running totals for progress reporting.
func (c *Collector) Snapshot() (total, failed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overall.count, c.overall.failed
}
