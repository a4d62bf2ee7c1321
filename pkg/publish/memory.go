package publish

import (
	"context"
	"sync"

	"github.com/shivanshkc/esbench/pkg/event"
)

// Memory is an in-process Publisher. It is used for dry runs and tests.
//
// By default only the number of events per stream is kept. Retain makes it
// keep the events themselves.
type Memory struct {
	mu      sync.Mutex
	counts  map[string]int
	streams map[string][]event.Event
	calls   int
	retain  bool

	// failWith, if set, is returned by every Publish call.
	failWith error
}

// NewMemory returns an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{counts: map[string]int{}, streams: map[string][]event.Event{}}
}

// Retain makes the publisher keep every appended event, see Stream.
func (m *Memory) Retain() *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retain = true
	return m
}

// FailWith makes every subsequent Publish call fail with err.
func (m *Memory) FailWith(err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
	return m
}

// Publish appends the events to the named stream.
func (m *Memory) Publish(ctx context.Context, stream string, events []event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failWith != nil {
		return m.failWith
	}

	m.counts[stream] += len(events)
	if m.retain {
		m.streams[stream] = append(m.streams[stream], events...)
	}
	return nil
}

// Stream returns a copy of the events appended to the named stream so far.
// It is always empty unless Retain was called.
func (m *Memory) Stream(name string) []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]event.Event, len(m.streams[name]))
	copy(out, m.streams[name])
	return out
}

// Count returns the number of events appended to the named stream.
func (m *Memory) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// Calls returns the number of Publish calls received, failed ones included.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close satisfies io.Closer.
func (m *Memory) Close() error { return nil }
