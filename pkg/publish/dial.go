package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Client is a Publisher that holds a connection.
type Client interface {
	Publisher
	io.Closer
}

// Connection string schemes understood by Dial.
const (
	SchemeESDB         = "esdb://"
	SchemeESDBDiscover = "esdb+discover://"
	SchemeKafka        = "kafka://"
	SchemeMemory       = "memory://"
)

// Dial returns the Client for the given connection string. The backend is
// picked by the scheme. All failures are returned as a *ConnectionError.
func Dial(ctx context.Context, connectionString string, logger *slog.Logger) (Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Target: connectionString, Err: err}
	}

	logger.Info("connecting to eventstore", "target", connectionString)

	client, err := dial(connectionString)
	if err != nil {
		return nil, &ConnectionError{Target: connectionString, Err: err}
	}

	logger.Info("connected")
	return client, nil
}

func dial(connectionString string) (Client, error) {
	lower := strings.ToLower(connectionString)

	switch {
	case strings.HasPrefix(lower, SchemeESDB), strings.HasPrefix(lower, SchemeESDBDiscover):
		return NewESDB(connectionString)
	case strings.HasPrefix(lower, SchemeKafka):
		return NewKafka(connectionString[len(SchemeKafka):])
	case strings.HasPrefix(lower, SchemeMemory):
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported connection string scheme")
	}
}
