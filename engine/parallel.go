package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/strandlang/strand/interp"
)

// RunParallel starts every agent concurrently under one shared deadline and
// collects one result per agent, in input order. Branches fail independently;
// a slow or broken branch never takes the others down with it.
func (e *Engine) RunParallel(ctx context.Context, agents []*interp.AgentHandle, timeout time.Duration) []interp.BranchResult {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results := make([]interp.BranchResult, len(agents))
	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(slot int, agent *interp.AgentHandle) {
			defer wg.Done()
			start := time.Now()
			value, err := e.RunAgent(runCtx, agent, "", false)
			if err != nil && runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				err = &AgentError{
					Kind:    ErrTimeout,
					Agent:   agent.Name,
					Message: "parallel block deadline of " + timeout.String() + " exceeded",
					Err:     err,
				}
			}
			if err != nil {
				e.log.Debug("parallel branch failed",
					slog.String("agent", agent.Name),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				results[slot] = interp.BranchResult{Err: err}
				return
			}
			results[slot] = interp.BranchResult{Value: value}
		}(i, agent)
	}
	wg.Wait()

	return results
}
