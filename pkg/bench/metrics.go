package bench

import (
	"sort"
	"sync"
	"time"
)

// Metrics summarises the latencies of the Publish calls of one test.
type Metrics struct {
	Count                        int
	Avg, Min, Med, P90, P99, Max time.Duration
}

// Recorder collects durations from concurrent runners.
type Recorder struct {
	mu        sync.Mutex
	durations Durations
}

// Record adds one duration.
func (r *Recorder) Record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, d)
}

// Durations returns a copy of everything recorded so far.
func (r *Recorder) Durations() Durations {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(Durations, len(r.durations))
	copy(out, r.durations)
	return out
}

type Durations []time.Duration

// Metrics computes all summary values at once.
func (ds Durations) Metrics() Metrics {
	if len(ds) == 0 {
		return Metrics{}
	}

	sorted := ds.sorted()
	return Metrics{
		Count: len(sorted),
		Avg:   sorted.Average(),
		Min:   sorted.Minimum(),
		Med:   sorted.Median(),
		P90:   sorted.Percentile(90),
		P99:   sorted.Percentile(99),
		Max:   sorted.Maximum(),
	}
}

// Average calculates the mean of a slice of time.Duration values.
func (ds Durations) Average() time.Duration {
	if len(ds) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// Minimum finds the smallest time.Duration in the slice.
func (ds Durations) Minimum() time.Duration {
	if len(ds) == 0 {
		return 0
	}

	m := ds[0]
	for _, d := range ds {
		if d < m {
			m = d
		}
	}
	return m
}

// Median finds the middle value of the slice.
func (ds Durations) Median() time.Duration {
	if len(ds) == 0 {
		return 0
	}

	sorted := ds.sorted()
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Maximum finds the largest time.Duration in the slice.
func (ds Durations) Maximum() time.Duration {
	if len(ds) == 0 {
		return 0
	}

	m := ds[0]
	for _, d := range ds {
		if d > m {
			m = d
		}
	}
	return m
}

// Percentile calculates the Pxx value for a slice of time.Duration.
// Given percentile should be between 0 and 100.
func (ds Durations) Percentile(percentile float64) time.Duration {
	if len(ds) == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	sorted := ds.sorted()
	index := int(float64(len(sorted)-1) * (percentile / 100.0))
	return sorted[index]
}

// sorted returns a sorted copy, leaving the receiver untouched.
func (ds Durations) sorted() Durations {
	sorted := make(Durations, len(ds))
	copy(sorted, ds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}
