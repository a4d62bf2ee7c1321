package bench

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid benchmark parameter. It is returned
// before any event is published.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// PublishError is a failed Publish call of a runner.
type PublishError struct {
	Stream string
	// Batch is the index of the failed batch within its runner.
	Batch int
	Size  int
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish batch %d (%d events) to stream %q: %v", e.Batch, e.Size, e.Stream, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// RunnerError ties a runner failure to the runner that produced it.
type RunnerError struct {
	Runner int
	Err    error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("runner %d: %v", e.Runner, e.Err)
}

func (e *RunnerError) Unwrap() error { return e.Err }

// AggregateError collects the failures of the runners of one parallel run.
type AggregateError struct {
	Total int
	Errs  []error
}

func (e *AggregateError) Error() string {
	messages := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d of %d runners failed: %s", len(e.Errs), e.Total, strings.Join(messages, "; "))
}

// Unwrap gives errors.Is and errors.As access to every runner failure.
func (e *AggregateError) Unwrap() []error { return e.Errs }
