package executor

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"cadence/internal/core"
)

const debugSeparator = "================================================================================"

// DebugLogger writes detailed failure reports for verbose mode. A nil
// logger is a no-op.
type DebugLogger struct {
	out io.Writer
	mu  sync.Mutex
}

func NewDebugLogger(out io.Writer) *DebugLogger {
	return &DebugLogger{out: out}
}

// LogFailure reports a failed transaction: method, URL, expected vs actual
// status, request headers and body, and the truncated response body.
func (d *DebugLogger) LogFailure(userID string, outcome core.Outcome, headers map[string]string, body []byte) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\nFAILED REQUEST - %s (user %s)\n%s\n", debugSeparator, outcome.Transaction, userID, debugSeparator)
	fmt.Fprintf(&buf, "URL: %s\n", outcome.URL)
	fmt.Fprintf(&buf, "Method: %s\n", outcome.Method)
	fmt.Fprintf(&buf, "Reason: %s\n", outcome.Reason)
	if outcome.ExpectedStatus != 0 {
		fmt.Fprintf(&buf, "Response Code: %d\nExpected Code: %d\n", outcome.StatusCode, outcome.ExpectedStatus)
	} else if outcome.StatusCode != 0 {
		fmt.Fprintf(&buf, "Response Code: %d\n", outcome.StatusCode)
	}
	if len(headers) > 0 {
		fmt.Fprintf(&buf, "Request Headers: %v\n", headers)
	}
	if len(body) > 0 {
		fmt.Fprintf(&buf, "Request Body: %s\n", body)
	}
	if outcome.BodySnippet != "" {
		fmt.Fprintf(&buf, "Response Body: %s\n", outcome.BodySnippet)
	}
	fmt.Fprintln(&buf, debugSeparator)
	fmt.Fprint(d.out, buf.String())
}
