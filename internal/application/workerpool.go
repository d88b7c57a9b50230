package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Outcome is the result of processing one work unit. Err is set when the
// unit failed, panicked, or was never started because ctx was done.
type Outcome[R any] struct {
	Value R
	Err   error
}

// RunPool processes units with at most concurrency workers. Workers claim
// units through a shared cursor so each unit is processed exactly once. A
// failing unit is recorded in its Outcome and never stops the pool. RunPool
// returns once every worker has exited; outcomes are indexed like units.
func RunPool[U, R any](
	ctx context.Context,
	units []U,
	concurrency int,
	process func(ctx context.Context, unit U) (R, error),
) []Outcome[R] {
	outcomes := make([]Outcome[R], len(units))
	if len(units) == 0 {
		return outcomes
	}

	workers := max(concurrency, 1)
	workers = min(workers, len(units))

	var (
		cursor atomic.Int64
		wg     sync.WaitGroup
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(units) {
					return
				}
				if err := ctx.Err(); err != nil {
					outcomes[i].Err = err
					continue
				}
				outcomes[i] = runUnit(ctx, units[i], process)
			}
		}()
	}

	wg.Wait()
	return outcomes
}

// runUnit isolates a single unit so a panic is reported as that unit's failure.
func runUnit[U, R any](ctx context.Context, unit U, process func(context.Context, U) (R, error)) (out Outcome[R]) {
	defer func() {
		if v := recover(); v != nil {
			out = Outcome[R]{Err: fmt.Errorf("work unit panicked: %v", v)}
		}
	}()

	value, err := process(ctx, unit)
	return Outcome[R]{Value: value, Err: err}
}
