// Package event builds the synthetic events published by the benchmark.
package event

import (
	"sync/atomic"
	"time"
)

// Event is a single item of a batch.
//
// Events are passed by value and are never modified after construction.
type Event struct {
	Type     string
	Data     any
	Metadata any
}

// Data is the payload of a factory-made event.
type Data struct {
	SampleData int64 `json:"sampleData"`
}

// Metadata records where in the run an event was produced.
type Metadata struct {
	I   int    `json:"i"`
	J   int    `json:"j"`
	Run string `json:"run,omitempty"`
}

// Factory produces events of a fixed type.
//
// A Factory is safe for concurrent use. The sampled timestamps never go
// backwards across calls, even if the wall clock does.
type Factory struct {
	eventType string
	runID     string
	now       func() time.Time
	last      atomic.Int64
}

// NewFactory returns a Factory for the given event type. The runID, if not
// empty, is stamped into every event's metadata.
func NewFactory(eventType, runID string) *Factory {
	return &Factory{eventType: eventType, runID: runID, now: time.Now}
}

// WithClock replaces the clock used for the sampled timestamp.
func (f *Factory) WithClock(now func() time.Time) *Factory {
	f.now = now
	return f
}

// New returns the j-th event of batch i.
func (f *Factory) New(i, j int) Event {
	return Event{
		Type:     f.eventType,
		Data:     Data{SampleData: f.timestamp()},
		Metadata: Metadata{I: i, J: j, Run: f.runID},
	}
}

// Batch returns the size events of batch i, in item order.
func (f *Factory) Batch(i, size int) []Event {
	if size <= 0 {
		return nil
	}

	events := make([]Event, size)
	for j := range events {
		events[j] = f.New(i, j)
	}
	return events
}

// timestamp returns the current time in unix millis, clamped to the last
// value handed out.
func (f *Factory) timestamp() int64 {
	current := f.now().UnixMilli()
	for {
		last := f.last.Load()
		if current <= last {
			return last
		}
		if f.last.CompareAndSwap(last, current) {
			return current
		}
	}
}
