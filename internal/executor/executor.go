package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadence/internal/core"
	"cadence/internal/correlation"
	"cadence/internal/pacing"
	"cadence/internal/vars"
)

// maxBodySnippetSize limits the response body carried in a failed outcome.
const maxBodySnippetSize = 2000

// Executor runs transactions against the transport collaborator. Safe for
// concurrent use by many user contexts; all mutable state lives in the
// stores and the gate.
type Executor struct {
	Transport    core.Transport
	Vars         *vars.Store
	Correlations *correlation.Store
	Gate         *pacing.Gate

	// Debug, when set, logs failed transactions in full.
	Debug *DebugLogger

	// Smoke, when set, prints an equivalent curl command per transaction
	// and disables throughput pacing.
	Smoke io.Writer

	resolver Resolver
}

// New wires an executor over the shared stores.
func New(transport core.Transport, varStore *vars.Store, corrStore *correlation.Store, gate *pacing.Gate) *Executor {
	return &Executor{
		Transport:    transport,
		Vars:         varStore,
		Correlations: corrStore,
		Gate:         gate,
		resolver:     Resolver{Vars: varStore, Correlations: corrStore},
	}
}

// Execute runs one transaction end-to-end. Check failures and transport
// errors produce a failed outcome with a nil error so the script continues;
// a non-nil error (data exhaustion, cancellation) terminates the user
// context's run.
func (e *Executor) Execute(ctx context.Context, tx Transaction, userID string, iteration int) (core.Outcome, error) {
	if tx.ThroughputRPM > 0 && e.Gate != nil && e.Smoke == nil {
		if err := e.Gate.Wait(ctx, tx.ThroughputRPM, tx.Name); err != nil {
			return core.Outcome{}, err
		}
	}

	method := strings.ToUpper(tx.Method)
	if method == "" {
		method = "GET"
	}

	url, err := e.resolver.ResolveString(tx.URL, userID)
	if err != nil {
		return core.Outcome{}, err
	}
	headers, err := e.resolver.ResolveMap(tx.Headers, userID)
	if err != nil {
		return core.Outcome{}, err
	}

	// A correlationId header is always overwritten with a fresh unique id,
	// after resolution and independently of any correlation rule.
	for name := range headers {
		if strings.EqualFold(name, "correlationId") {
			headers[name] = uuid.NewString()
		}
	}

	body, err := e.buildBody(tx.Body, userID)
	if err != nil {
		return core.Outcome{}, err
	}

	if e.Smoke != nil {
		writeSmoke(e.Smoke, tx.Name, userID, iteration, method, url, headers, body)
	}

	outcome := core.Outcome{
		Transaction: tx.Name,
		Method:      method,
		URL:         url,
		BytesSent:   int64(len(body)),
	}

	start := time.Now()
	resp, sendErr := e.Transport.Send(ctx, method, url, headers, body)
	outcome.Duration = time.Since(start)

	if sendErr != nil {
		if ctx.Err() != nil {
			return core.Outcome{}, ctx.Err()
		}
		outcome.Success = false
		outcome.Reason = sendErr.Error()
		e.Debug.LogFailure(userID, outcome, headers, body)
		return outcome, nil
	}

	outcome.StatusCode = resp.StatusCode
	outcome.BytesRecv = int64(len(resp.Body))
	outcome.BodySnippet = snippet(resp.Body)
	outcome.Success = true

	if tx.Checks != nil {
		if tx.Checks.Status != 0 {
			outcome.ExpectedStatus = tx.Checks.Status
			if resp.StatusCode != tx.Checks.Status {
				outcome.Success = false
				outcome.Reason = fmt.Sprintf("status code %d != %d", resp.StatusCode, tx.Checks.Status)
			}
		}
		if outcome.Success && tx.Checks.Contains != "" {
			if !strings.Contains(string(resp.Body), tx.Checks.Contains) {
				outcome.Success = false
				outcome.Reason = fmt.Sprintf("content check failed: %q not found", tx.Checks.Contains)
			}
		}
	}

	if !outcome.Success {
		e.Debug.LogFailure(userID, outcome, headers, body)
	}

	// Extraction runs regardless of check outcome; a miss stores nothing.
	for _, rule := range tx.Correlations {
		e.Correlations.Extract(resp.Body, rule, userID)
	}

	if tx.ThinkTime > 0 {
		if err := core.Sleep(ctx, tx.ThinkTime); err != nil {
			return outcome, err
		}
	}

	return outcome, nil
}

// buildBody resolves the body template and serializes structured bodies to
// JSON. String bodies are sent as-is after substitution.
func (e *Executor) buildBody(body any, userID string) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		if b == "" {
			return nil, nil
		}
		resolved, err := e.resolver.ResolveString(b, userID)
		if err != nil {
			return nil, err
		}
		return []byte(resolved), nil
	default:
		resolved, err := e.resolver.ResolveValue(body, userID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resolved)
	}
}

func snippet(body []byte) string {
	if len(body) <= maxBodySnippetSize {
		return string(body)
	}
	return string(body[:maxBodySnippetSize])
}
