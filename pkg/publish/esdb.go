package publish

import (
	"context"
	"fmt"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"

	"github.com/shivanshkc/esbench/pkg/event"
)

// appender is the part of the EventStoreDB client used by ESDB.
type appender interface {
	AppendToStream(
		ctx context.Context, streamID string, opts esdb.AppendToStreamOptions, events ...esdb.EventData,
	) (*esdb.WriteResult, error)
	Close() error
}

// ESDB publishes events to an EventStoreDB server.
type ESDB struct {
	client appender
}

// NewESDB parses the connection string and creates an EventStoreDB client.
func NewESDB(connectionString string) (*ESDB, error) {
	settings, err := esdb.ParseConnectionString(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &ESDB{client: client}, nil
}

// Publish appends the events to the stream in a single call, with no
// expected revision.
func (p *ESDB) Publish(ctx context.Context, stream string, events []event.Event) error {
	eventData := make([]esdb.EventData, len(events))
	for i, e := range events {
		data, metadata, err := encode(e)
		if err != nil {
			return err
		}

		eventData[i] = esdb.EventData{
			ContentType: esdb.ContentTypeJson,
			EventType:   e.Type,
			Data:        data,
			Metadata:    metadata,
		}
	}

	if _, err := p.client.AppendToStream(ctx, stream, esdb.AppendToStreamOptions{}, eventData...); err != nil {
		return fmt.Errorf("failed to append to stream: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (p *ESDB) Close() error {
	return p.client.Close()
}
