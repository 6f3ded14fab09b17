// Package executor orchestrates one HTTP transaction end-to-end:
// substitute, pace, send, check, extract, pause.
package executor

import (
	"time"

	"cadence/internal/correlation"
)

// Checks are declarative validations against the response. Zero values mean
// "not declared": with no checks at all, the transport's own success signal
// stands.
type Checks struct {
	Status   int    `yaml:"status"`
	Contains string `yaml:"contains"`
}

// Transaction is the static spec of one request/response cycle. URL, header
// values and body may embed ${name} placeholders; body substitution recurses
// through nested structures.
type Transaction struct {
	Name          string             `yaml:"name"`
	Method        string             `yaml:"method"`
	URL           string             `yaml:"url"`
	Headers       map[string]string  `yaml:"headers"`
	Body          any                `yaml:"body"`
	Checks        *Checks            `yaml:"checks"`
	Correlations  []correlation.Rule `yaml:"correlations"`
	ThinkTime     time.Duration      `yaml:"thinkTime"`
	ThroughputRPM float64            `yaml:"throughputRpm"` // timer id is the transaction name
}

// Script is the ordered transaction list one scenario's users execute.
type Script struct {
	Scenario     string
	Name         string
	Transactions []Transaction
}
