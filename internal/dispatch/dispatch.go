// Package dispatch implements the ParallelDispatcher (spec §4.7): a
// fan-out/fan-in utility that runs a mapping task over a list of sources on
// a bounded worker pool and feeds every partial result to a collector.
//
// Grounded on cmd/coordinator/main.go's handleBroadcast, whose own comment
// reads "Send request to each node (sequential for simplicity) ... Could be
// parallelized with goroutines for better performance" — Dispatch is that
// parallelization, generalized from a fire-and-forget broadcast to a
// fan-in with typed collectors and cooperative cancellation.
package dispatch

import (
	"context"
	"sync"

	"github.com/dreamware/terrastore/internal/telemetry"
)

// Collector merges successive partial results of type P into an aggregate
// of type R. Implementations must be safe for concurrent Add calls; Dispatch
// does not serialize them itself.
type Collector[P, R any] interface {
	// Add merges partial into the collector's running aggregate. Returning
	// an error aborts the dispatch: in-flight tasks are cancelled
	// cooperatively via the context passed to task, and the error is
	// returned from Dispatch.
	Add(partial P) error

	// Result returns the aggregate built from every successful Add call.
	Result() R
}

// Dispatch runs task(ctx, src) for every src in sources on a pool of at most
// concurrency goroutines, feeding each successful partial to collector.
// concurrency <= 0 means "one goroutine per source".
//
// If any task returns an error, or any Collector.Add call does, the shared
// context is cancelled so cooperating tasks can stop early, remaining
// unscheduled sources are skipped, and Dispatch returns the first error
// observed (spec §4.7: "if any task throws, in-flight tasks are cancelled
// cooperatively and the aggregated exception is returned"). Per-task
// timeouts are not Dispatch's concern; they live in the Node layer.
func Dispatch[S, P, R any](
	ctx context.Context,
	sources []S,
	concurrency int,
	task func(context.Context, S) (P, error),
	collector Collector[P, R],
) (R, error) {
	var zero R
	telemetry.DispatchFanout.Observe(float64(len(sources)))
	if concurrency <= 0 {
		concurrency = len(sources)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error
	fail := func(err error) {
		once.Do(func() { firstErr = err })
		cancel()
	}

sourcesLoop:
	for _, src := range sources {
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
			break sourcesLoop
		}
		if runCtx.Err() != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(src S) {
			defer wg.Done()
			defer func() { <-sem }()

			partial, err := task(runCtx, src)
			if err != nil {
				fail(err)
				return
			}
			if err := collector.Add(partial); err != nil {
				fail(err)
			}
		}(src)
	}
	wg.Wait()

	if firstErr != nil {
		return zero, firstErr
	}
	// Only the caller's own context can reach here still cancelled: our
	// local cancel() never fires without also setting firstErr.
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return collector.Result(), nil
}
