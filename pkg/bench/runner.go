// Package bench drives batches of events through a publisher and measures the
// achieved throughput.
package bench

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shivanshkc/esbench/pkg/event"
	"github.com/shivanshkc/esbench/pkg/publish"
)

// Policy decides how a parallel run reacts to a failed runner.
type Policy int

const (
	// CollectAll lets every runner finish and reports all failures.
	CollectAll Policy = iota
	// FailFast stops the remaining runners before their next batch once one
	// runner fails. The run still returns only after every runner returned.
	FailFast
)

func (p Policy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "collect-all"
}

// Runner publishes batches of factory-made events to a single stream.
type Runner struct {
	Publisher publish.Publisher
	Factory   *event.Factory
	Stream    string

	// Latencies, if set, records the duration of every successful Publish call.
	Latencies *Recorder
}

// RunBatches publishes batchCount batches of batchSize events, one after the
// other. Batch i is only built once batch i-1 has been published.
//
// It stops at the first failure, which is returned as a *PublishError.
func (r *Runner) RunBatches(ctx context.Context, batchSize, batchCount int) error {
	for i := 0; i < batchCount; i++ {
		// Don't start a new batch if the run is over.
		if err := ctx.Err(); err != nil {
			return &PublishError{Stream: r.Stream, Batch: i, Size: batchSize, Err: err}
		}

		events := r.Factory.Batch(i, batchSize)

		start := time.Now()
		if err := r.Publisher.Publish(ctx, r.Stream, events); err != nil {
			return &PublishError{Stream: r.Stream, Batch: i, Size: batchSize, Err: err}
		}

		if r.Latencies != nil {
			r.Latencies.Record(time.Since(start))
		}
	}

	return nil
}

// RunParallel launches params.ParallelCount concurrent RunBatches calls against
// the same stream and waits for all of them.
//
// If any runner fails, an *AggregateError holding a *RunnerError per failed
// runner is returned. With FailFast, runners that were stopped because of
// another runner's failure are not reported.
func (r *Runner) RunParallel(ctx context.Context, params BatchParameters, policy Policy) error {
	if err := params.Validate(); err != nil {
		return err
	}

	// Only FailFast shares a cancelable context between the runners.
	group, groupCtx := &errgroup.Group{}, ctx
	if policy == FailFast {
		group, groupCtx = errgroup.WithContext(ctx)
	}

	// Failures are collected here as the group itself only keeps the first one.
	var mu sync.Mutex
	var failures []error

	for h := 0; h < params.ParallelCount; h++ {
		group.Go(func() error {
			err := r.RunBatches(groupCtx, params.BatchSize, params.BatchCount)
			if err == nil {
				return nil
			}

			// A runner stopped by a sibling's failure did not fail on its own.
			if policy == FailFast && groupCtx.Err() != nil && ctx.Err() == nil && isContextErr(err) {
				return err
			}

			mu.Lock()
			failures = append(failures, &RunnerError{Runner: h, Err: err})
			mu.Unlock()
			return err
		})
	}

	// Join barrier: every runner has returned after this point.
	_ = group.Wait()

	if len(failures) == 0 {
		return nil
	}
	return &AggregateError{Total: params.ParallelCount, Errs: failures}
}

// isContextErr reports whether err was caused by a done context.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
