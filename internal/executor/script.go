package executor

import (
	"context"

	"cadence/internal/core"
)

// ScriptLoop executes a scenario's transactions strictly in declared order,
// once per iteration. It implements core.UserLoop. A transaction error
// (data exhaustion, cancellation) stops the whole run for that user context.
type ScriptLoop struct {
	Script   Script
	Executor *Executor
}

func (l *ScriptLoop) RunIteration(ctx context.Context, userID string, iteration int, rep core.Reporter) error {
	for _, tx := range l.Script.Transactions {
		outcome, err := l.Executor.Execute(ctx, tx, userID, iteration)
		if err != nil {
			return err
		}
		rep.Report(outcome.Event(userID, l.Script.Scenario))
	}
	return nil
}
