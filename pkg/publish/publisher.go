// Package publish defines the Publisher boundary of the benchmark and the
// backends that implement it.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shivanshkc/esbench/pkg/event"
)

// Publisher appends an ordered, non-empty sequence of events to a stream.
//
// Implementations must be safe for concurrent use and must keep the order of
// events within one call. A returned error concerns that call only.
type Publisher interface {
	Publish(ctx context.Context, stream string, events []event.Event) error
}

// Func adapts an ordinary function to the Publisher interface.
type Func func(ctx context.Context, stream string, events []event.Event) error

// Publish calls f.
func (f Func) Publish(ctx context.Context, stream string, events []event.Event) error {
	return f(ctx, stream, events)
}

// ConnectionError is returned when a publisher cannot be constructed.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %q: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// encode returns the JSON encoding of the event's data and metadata.
// A nil metadata encodes to nil.
func encode(e event.Event) (data, metadata []byte, err error) {
	data, err = json.Marshal(e.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	if e.Metadata == nil {
		return data, nil, nil
	}

	metadata, err = json.Marshal(e.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event metadata: %w", err)
	}
	return data, metadata, nil
}
