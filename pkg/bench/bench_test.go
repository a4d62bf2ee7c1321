package bench_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivanshkc/esbench/pkg/bench"
	"github.com/shivanshkc/esbench/pkg/event"
	"github.com/shivanshkc/esbench/pkg/publish"
)

// countingPublisher counts calls and events without keeping them.
// It also tracks how many calls are in flight at a time.
type countingPublisher struct {
	calls, events atomic.Int64
	inFlight      atomic.Int64
	maxInFlight   atomic.Int64

	delay time.Duration
	// failOn, if set, decides whether a call fails. It receives the 1-based call number.
	failOn func(call int64) error
}

func (c *countingPublisher) Publish(ctx context.Context, _ string, events []event.Event) error {
	call := c.calls.Add(1)

	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if current <= peak || c.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if c.failOn != nil {
		if err := c.failOn(call); err != nil {
			return err
		}
	}

	c.events.Add(int64(len(events)))
	return nil
}

func newRunner(publisher publish.Publisher) *bench.Runner {
	return &bench.Runner{
		Publisher: publisher,
		Factory:   event.NewFactory("SampleEvent", ""),
		Stream:    "my_sample_stream",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRunner_RunBatches verifies the sequential batch loop of a single runner.
func TestRunner_RunBatches(t *testing.T) {
	t.Run("Publishes Every Batch In Order", func(t *testing.T) {
		memory := publish.NewMemory().Retain()
		runner := newRunner(memory)

		require.NoError(t, runner.RunBatches(context.Background(), 3, 4))
		assert.Equal(t, 4, memory.Calls())

		events := memory.Stream("my_sample_stream")
		require.Len(t, events, 12)
		for k, e := range events {
			assert.Equal(t, event.Metadata{I: k / 3, J: k % 3}, e.Metadata)
		}
	})

	t.Run("Calls Never Overlap", func(t *testing.T) {
		publisher := &countingPublisher{delay: time.Millisecond}
		runner := newRunner(publisher)

		require.NoError(t, runner.RunBatches(context.Background(), 2, 10))
		assert.EqualValues(t, 10, publisher.calls.Load())
		assert.EqualValues(t, 1, publisher.maxInFlight.Load())
	})

	t.Run("Stops At First Failure", func(t *testing.T) {
		failure := errors.New("stream deleted")
		publisher := &countingPublisher{failOn: func(call int64) error {
			if call == 3 {
				return failure
			}
			return nil
		}}
		runner := newRunner(publisher)

		err := runner.RunBatches(context.Background(), 5, 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, failure)

		var publishErr *bench.PublishError
		require.ErrorAs(t, err, &publishErr)
		assert.Equal(t, 2, publishErr.Batch)
		assert.Equal(t, 5, publishErr.Size)
		assert.Equal(t, "my_sample_stream", publishErr.Stream)
		assert.EqualValues(t, 3, publisher.calls.Load(), "No call should follow the failure")
	})

	t.Run("Canceled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		publisher := &countingPublisher{}
		err := newRunner(publisher).RunBatches(ctx, 5, 10)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, publisher.calls.Load())
	})

	t.Run("Latencies Are Recorded", func(t *testing.T) {
		runner := newRunner(&countingPublisher{})
		runner.Latencies = &bench.Recorder{}

		require.NoError(t, runner.RunBatches(context.Background(), 1, 7))
		assert.Len(t, runner.Latencies.Durations(), 7)
	})
}

// TestRunner_RunParallel verifies the fan-out and join of parallel runners.
func TestRunner_RunParallel(t *testing.T) {
	t.Run("Every Runner Publishes Every Batch", func(t *testing.T) {
		publisher := &countingPublisher{delay: time.Millisecond}
		params := bench.BatchParameters{BatchSize: 5, BatchCount: 4, ParallelCount: 8}

		require.NoError(t, newRunner(publisher).RunParallel(context.Background(), params, bench.CollectAll))
		assert.EqualValues(t, 32, publisher.calls.Load())
		assert.EqualValues(t, params.TotalItems(), publisher.events.Load())
		assert.Zero(t, publisher.inFlight.Load())
	})

	t.Run("Collect All Waits For Every Failing Runner", func(t *testing.T) {
		failure := errors.New("connection reset")
		publisher := &countingPublisher{
			delay:  5 * time.Millisecond,
			failOn: func(int64) error { return failure },
		}
		params := bench.BatchParameters{BatchSize: 10, BatchCount: 3, ParallelCount: 5}

		err := newRunner(publisher).RunParallel(context.Background(), params, bench.CollectAll)
		require.Error(t, err)

		var aggregate *bench.AggregateError
		require.ErrorAs(t, err, &aggregate)
		assert.Equal(t, 5, aggregate.Total)
		assert.Len(t, aggregate.Errs, 5)
		assert.ErrorIs(t, err, failure)

		// Every runner aborted on its first call and all have settled.
		assert.EqualValues(t, 5, publisher.calls.Load())
		assert.Zero(t, publisher.inFlight.Load())

		runners := map[int]bool{}
		for _, e := range aggregate.Errs {
			var runnerErr *bench.RunnerError
			require.ErrorAs(t, e, &runnerErr)
			runners[runnerErr.Runner] = true

			var publishErr *bench.PublishError
			require.ErrorAs(t, e, &publishErr)
			assert.Equal(t, 0, publishErr.Batch)
		}
		assert.Len(t, runners, 5)
	})

	t.Run("Collect All Lets Healthy Runners Finish", func(t *testing.T) {
		failure := errors.New("simulated failure")
		publisher := &countingPublisher{failOn: func(call int64) error {
			if call == 1 {
				return failure
			}
			return nil
		}}
		params := bench.BatchParameters{BatchSize: 1, BatchCount: 10, ParallelCount: 4}

		err := newRunner(publisher).RunParallel(context.Background(), params, bench.CollectAll)

		var aggregate *bench.AggregateError
		require.ErrorAs(t, err, &aggregate)
		assert.Len(t, aggregate.Errs, 1)
		// One runner stopped after its first call, the other three published everything.
		assert.EqualValues(t, 31, publisher.calls.Load())
	})

	t.Run("Fail Fast Stops The Other Runners", func(t *testing.T) {
		failure := errors.New("simulated failure")
		publisher := &countingPublisher{
			delay: 2 * time.Millisecond,
			failOn: func(call int64) error {
				if call == 1 {
					return failure
				}
				return nil
			},
		}
		params := bench.BatchParameters{BatchSize: 1, BatchCount: 1000, ParallelCount: 4}

		err := newRunner(publisher).RunParallel(context.Background(), params, bench.FailFast)

		var aggregate *bench.AggregateError
		require.ErrorAs(t, err, &aggregate)
		assert.Len(t, aggregate.Errs, 1, "Runners stopped by the failure are not failures")
		assert.ErrorIs(t, err, failure)
		assert.Less(t, publisher.calls.Load(), int64(4000))
		assert.Zero(t, publisher.inFlight.Load(), "All runners must have returned")
	})

	t.Run("Invalid Parameters Publish Nothing", func(t *testing.T) {
		publisher := &countingPublisher{}
		params := bench.BatchParameters{BatchSize: 0, BatchCount: 1, ParallelCount: 1}

		err := newRunner(publisher).RunParallel(context.Background(), params, bench.CollectAll)

		var configErr *bench.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "batchSize", configErr.Field)
		assert.Zero(t, publisher.calls.Load())
	})
}

func TestMeasure(t *testing.T) {
	measurement := bench.Measure(func() string {
		time.Sleep(20 * time.Millisecond)
		return "done"
	})

	assert.GreaterOrEqual(t, measurement.Elapsed, 20*time.Millisecond)
	assert.Equal(t, "done", measurement.Result)
}

func TestThroughput(t *testing.T) {
	type testCase struct {
		name     string
		items    int64
		elapsed  time.Duration
		expected float64
	}

	testCases := []testCase{
		{name: "Regular", items: 1000, elapsed: 2 * time.Second, expected: 500},
		{name: "Sub Second", items: 500_000, elapsed: 250 * time.Millisecond, expected: 2_000_000},
		{name: "Zero Elapsed", items: 10, elapsed: 0, expected: math.Inf(1)},
		{name: "Zero Items", items: 0, elapsed: time.Second, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := bench.Throughput(tc.items, tc.elapsed)
			if math.IsInf(tc.expected, 1) {
				assert.True(t, math.IsInf(actual, 1))
				return
			}
			assert.InDelta(t, tc.expected, actual, 1e-9)
		})
	}
}

func TestResult(t *testing.T) {
	result := bench.Result{
		Params:  bench.BatchParameters{BatchSize: 50, BatchCount: 100, ParallelCount: 1000},
		Elapsed: 1500 * time.Millisecond,
	}

	assert.EqualValues(t, 5_000_000, result.TotalItems())
	assert.InDelta(t, 1500.0, result.ElapsedMillis(), 1e-9)
	assert.InDelta(t, 5_000_000/1.5, result.Throughput(), 1e-6)

	result.Latency.Count = 40
	assert.EqualValues(t, 2000, result.PublishedItems())

	result.Err = errors.New("boom")
	assert.True(t, math.IsNaN(result.Throughput()), "A failed set has no throughput")
}

func TestParseParams(t *testing.T) {
	type testCase struct {
		name        string
		value       string
		expected    []bench.BatchParameters
		expectedErr string
	}

	testCases := []testCase{
		{
			name:  "Default Sets",
			value: "50x100x100,50x100x1000",
			expected: []bench.BatchParameters{
				{BatchSize: 50, BatchCount: 100, ParallelCount: 100},
				{BatchSize: 50, BatchCount: 100, ParallelCount: 1000},
			},
		},
		{
			name:     "Whitespace And Upper Case",
			value:    " 1X2X3 , ",
			expected: []bench.BatchParameters{{BatchSize: 1, BatchCount: 2, ParallelCount: 3}},
		},
		{name: "Empty", value: "", expectedErr: "at least one parameter set"},
		{name: "Missing Part", value: "50x100", expectedErr: "expected SIZExCOUNTxPARALLEL"},
		{name: "Not A Number", value: "50xtenx1", expectedErr: "not a number"},
		{name: "Zero Batch Size", value: "0x100x100", expectedErr: "invalid batchSize"},
		{name: "Negative Parallel Count", value: "1x1x-4", expectedErr: "invalid parallelCount"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sets, err := bench.ParseParams(tc.value)
			if tc.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)

				var configErr *bench.ConfigurationError
				assert.ErrorAs(t, err, &configErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, sets)
		})
	}
}

// recordingReporter keeps every reported result.
type recordingReporter struct {
	mu      sync.Mutex
	results []bench.Result
}

func (r *recordingReporter) Report(result bench.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func newHarness(publisher publish.Publisher, reporter bench.Reporter) *bench.Harness {
	return &bench.Harness{
		Publisher: publisher,
		Factory:   event.NewFactory("SampleEvent", ""),
		Stream:    "my_sample_stream",
		Logger:    discardLogger(),
		Reporter:  reporter,
	}
}

// TestHarness_Run verifies the sequential execution of parameter sets.
func TestHarness_Run(t *testing.T) {
	t.Run("Reference Scenario", func(t *testing.T) {
		publisher := &countingPublisher{}
		reporter := &recordingReporter{}
		sets := []bench.BatchParameters{{BatchSize: 50, BatchCount: 100, ParallelCount: 100}}

		results, err := newHarness(publisher, reporter).Run(context.Background(), sets)
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.EqualValues(t, 10_000, publisher.calls.Load())
		assert.EqualValues(t, 500_000, publisher.events.Load())
		assert.EqualValues(t, 500_000, results[0].TotalItems())
		assert.Equal(t, 10_000, results[0].Latency.Count)
		assert.Equal(t, results, reporter.results)
	})

	t.Run("Sets Run In Order And Never Overlap", func(t *testing.T) {
		publisher := &countingPublisher{}
		sets := []bench.BatchParameters{
			{BatchSize: 1, BatchCount: 2, ParallelCount: 3},
			{BatchSize: 4, BatchCount: 5, ParallelCount: 6},
			{BatchSize: 7, BatchCount: 1, ParallelCount: 2},
		}

		var seen []int64
		observer := bench.Reporter(reporterFunc(func(result bench.Result) {
			// Nothing may be in flight once a set is reported.
			assert.Zero(t, publisher.inFlight.Load())
			seen = append(seen, publisher.events.Load())
		}))

		results, err := newHarness(publisher, observer).Run(context.Background(), sets)
		require.NoError(t, err)
		require.Len(t, results, 3)

		for i, result := range results {
			assert.Equal(t, sets[i], result.Params)
			assert.NoError(t, result.Err)
		}
		assert.Equal(t, []int64{6, 126, 140}, seen)
	})

	t.Run("Invalid Set Is Rejected Before Publishing", func(t *testing.T) {
		publisher := &countingPublisher{}
		sets := []bench.BatchParameters{
			{BatchSize: 50, BatchCount: 100, ParallelCount: 100},
			{BatchSize: 0, BatchCount: 100, ParallelCount: 100},
		}

		results, err := newHarness(publisher, nil).Run(context.Background(), sets)

		var configErr *bench.ConfigurationError
		require.ErrorAs(t, err, &configErr)
		assert.Nil(t, results)
		assert.Zero(t, publisher.calls.Load())
	})

	t.Run("No Sets", func(t *testing.T) {
		_, err := newHarness(&countingPublisher{}, nil).Run(context.Background(), nil)
		var configErr *bench.ConfigurationError
		assert.ErrorAs(t, err, &configErr)
	})

	t.Run("Stops After A Failed Set", func(t *testing.T) {
		failure := errors.New("not leader")
		memory := publish.NewMemory().FailWith(failure)
		reporter := &recordingReporter{}
		sets := []bench.BatchParameters{
			{BatchSize: 2, BatchCount: 2, ParallelCount: 5},
			{BatchSize: 2, BatchCount: 2, ParallelCount: 5},
		}

		results, err := newHarness(memory, reporter).Run(context.Background(), sets)
		require.Error(t, err)
		assert.ErrorIs(t, err, failure)

		var aggregate *bench.AggregateError
		require.ErrorAs(t, err, &aggregate)
		assert.Len(t, aggregate.Errs, 5)

		require.Len(t, results, 1, "The second set must not run")
		assert.Error(t, results[0].Err)
		assert.Len(t, reporter.results, 1, "The failed set is still reported")
		assert.Equal(t, 5, memory.Calls())
	})

	t.Run("Failed Set Has No Throughput", func(t *testing.T) {
		publisher := &countingPublisher{failOn: func(call int64) error {
			if call == 1 {
				return errors.New("stream deleted")
			}
			return nil
		}}
		var logs bytes.Buffer
		harness := newHarness(publisher, nil)
		harness.Logger = slog.New(slog.NewTextHandler(&logs, nil))
		sets := []bench.BatchParameters{{BatchSize: 10, BatchCount: 10, ParallelCount: 1}}

		results, err := harness.Run(context.Background(), sets)
		require.Error(t, err)
		require.Len(t, results, 1)

		assert.EqualValues(t, 100, results[0].TotalItems())
		assert.Zero(t, results[0].PublishedItems())
		assert.True(t, math.IsNaN(results[0].Throughput()))

		assert.Contains(t, logs.String(), "parallel test failed")
		assert.Contains(t, logs.String(), "publishedItems=0")
		assert.NotContains(t, logs.String(), "itemsPerSecond")
	})

	t.Run("Nil Logger", func(t *testing.T) {
		publisher := &countingPublisher{}
		harness := newHarness(publisher, nil)
		harness.Logger = nil
		sets := []bench.BatchParameters{{BatchSize: 2, BatchCount: 3, ParallelCount: 4}}

		var results []bench.Result
		var err error
		require.NotPanics(t, func() { results, err = harness.Run(context.Background(), sets) })
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.EqualValues(t, 24, publisher.events.Load())
	})
}

// reporterFunc adapts a function to bench.Reporter.
type reporterFunc func(bench.Result)

func (f reporterFunc) Report(result bench.Result) { f(result) }

func TestDurations_Metrics(t *testing.T) {
	ds := bench.Durations{
		5 * time.Millisecond, 1 * time.Millisecond, 3 * time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond,
	}

	metrics := ds.Metrics()
	assert.Equal(t, bench.Metrics{
		Count: 5,
		Avg:   3 * time.Millisecond,
		Min:   1 * time.Millisecond,
		Med:   3 * time.Millisecond,
		P90:   4 * time.Millisecond,
		P99:   4 * time.Millisecond,
		Max:   5 * time.Millisecond,
	}, metrics)

	assert.Equal(t, metrics.Min, ds.Minimum())
	assert.Equal(t, metrics.Max, ds.Maximum())
	assert.Zero(t, bench.Durations(nil).Minimum())
	assert.Zero(t, bench.Durations(nil).Maximum())

	// The receiver stays unsorted.
	assert.Equal(t, 5*time.Millisecond, ds[0])
	assert.Equal(t, bench.Metrics{}, bench.Durations(nil).Metrics())
}

func TestTableReporter_Render(t *testing.T) {
	reporter := &bench.TableReporter{}
	reporter.Report(bench.Result{
		Params:  bench.BatchParameters{BatchSize: 50, BatchCount: 100, ParallelCount: 100},
		Elapsed: 2 * time.Second,
	})
	reporter.Report(bench.Result{
		Params:  bench.BatchParameters{BatchSize: 50, BatchCount: 100, ParallelCount: 1000},
		Elapsed: time.Second,
		Err:     errors.New("boom"),
	})

	var out bytes.Buffer
	reporter.Render(&out)

	assert.Contains(t, out.String(), "Items/s")
	assert.Contains(t, out.String(), "500000")
	assert.Contains(t, out.String(), "250.00k")
	assert.Contains(t, out.String(), "FAILED")
	assert.Contains(t, out.String(), "n/a", "A failed set shows no rate")
	assert.NotContains(t, out.String(), "5.00M")
}
