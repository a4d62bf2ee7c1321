package bench

import (
	"math"
	"time"
)

// Measurement is the outcome of one measured operation.
type Measurement[T any] struct {
	Elapsed time.Duration
	Result  T
}

// Measure calls op once and records the wall-clock time it took, including
// everything op waits for. It does not start any goroutines of its own.
func Measure[T any](op func() T) Measurement[T] {
	start := time.Now()
	result := op()
	// time.Since uses the monotonic clock, so the result is never negative.
	return Measurement[T]{Elapsed: time.Since(start), Result: result}
}

// Result is the timing of one parameter set.
type Result struct {
	Params  BatchParameters
	Elapsed time.Duration
	Latency Metrics
	Err     error
}

// TotalItems returns the number of events the parameter set publishes.
func (r Result) TotalItems() int64 { return r.Params.TotalItems() }

// PublishedItems returns the number of events whose Publish call succeeded.
func (r Result) PublishedItems() int64 {
	return int64(r.Latency.Count) * int64(r.Params.BatchSize)
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (r Result) ElapsedMillis() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// Throughput returns items per second.
//
// It is NaN for a failed set, +Inf when no measurable time elapsed, and 0 when
// there are no items.
func (r Result) Throughput() float64 {
	if r.Err != nil {
		return math.NaN()
	}
	return Throughput(r.TotalItems(), r.Elapsed)
}

// Throughput returns items / elapsed seconds, guarding against a zero duration.
func Throughput(items int64, elapsed time.Duration) float64 {
	if items <= 0 {
		return 0
	}
	if elapsed <= 0 {
		return math.Inf(1)
	}
	return float64(items) / elapsed.Seconds()
}
