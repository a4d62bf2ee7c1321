package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shivanshkc/esbench/pkg/event"
	"github.com/shivanshkc/esbench/pkg/publish"
)

// Harness runs a sequence of parallel tests against one stream.
type Harness struct {
	Publisher publish.Publisher
	Factory   *event.Factory
	Stream    string
	Policy    Policy
	// Logger receives one line per parameter set. Optional, nil discards.
	Logger *slog.Logger
	// Reporter receives the result of every parameter set. Optional.
	Reporter Reporter
}

// Run executes the parameter sets one after the other and returns their
// results in order.
//
// All sets are validated before the first event is published. Run stops after
// the first failed set; its result is still reported and returned.
func (h *Harness) Run(ctx context.Context, sets []BatchParameters) ([]Result, error) {
	if len(sets) == 0 {
		return nil, &ConfigurationError{Field: "params", Value: "", Reason: "at least one parameter set is required"}
	}
	for _, set := range sets {
		if err := set.Validate(); err != nil {
			return nil, err
		}
	}

	logger := h.logger()
	results := make([]Result, 0, len(sets))
	for _, set := range sets {
		logger.Debug("parallel test",
			"batchSize", set.BatchSize, "batchCount", set.BatchCount, "parallelCount", set.ParallelCount,
			"policy", h.Policy.String())

		latencies := &Recorder{}
		runner := &Runner{Publisher: h.Publisher, Factory: h.Factory, Stream: h.Stream, Latencies: latencies}

		measurement := Measure(func() error {
			return runner.RunParallel(ctx, set, h.Policy)
		})

		result := Result{
			Params:  set,
			Elapsed: measurement.Elapsed,
			Latency: latencies.Durations().Metrics(),
			Err:     measurement.Result,
		}
		results = append(results, result)
		h.report(logger, result)

		if result.Err != nil {
			return results, fmt.Errorf("parallel test %s failed: %w", set, result.Err)
		}
	}

	return results, nil
}

func (h *Harness) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.Logger
}

// report logs the summary line of a result and passes it to the Reporter.
func (h *Harness) report(logger *slog.Logger, result Result) {
	attrs := []any{
		"batchSize", result.Params.BatchSize,
		"batchCount", result.Params.BatchCount,
		"parallelCount", result.Params.ParallelCount,
		"totalItems", result.TotalItems(),
		"elapsedMs", result.ElapsedMillis(),
	}

	// A failed set has no throughput, only the events that made it.
	if result.Err != nil {
		attrs = append(attrs, "publishedItems", result.PublishedItems(), "error", result.Err)
		logger.Error("parallel test failed", attrs...)
	} else {
		logger.Info("ran parallel test", append(attrs, "itemsPerSecond", result.Throughput())...)
	}

	if h.Reporter != nil {
		h.Reporter.Report(result)
	}
}
