package bench

import (
	"fmt"
	"strconv"
	"strings"
)

// BatchParameters describe one test: ParallelCount runners, each publishing
// BatchCount batches of BatchSize events.
type BatchParameters struct {
	BatchSize     int
	BatchCount    int
	ParallelCount int
}

// TotalItems returns the number of events the test publishes.
func (p BatchParameters) TotalItems() int64 {
	return int64(p.BatchSize) * int64(p.BatchCount) * int64(p.ParallelCount)
}

// Validate returns a *ConfigurationError if any field is not positive.
func (p BatchParameters) Validate() error {
	switch {
	case p.BatchSize <= 0:
		return &ConfigurationError{Field: "batchSize", Value: strconv.Itoa(p.BatchSize), Reason: "must be greater than 0"}
	case p.BatchCount <= 0:
		return &ConfigurationError{Field: "batchCount", Value: strconv.Itoa(p.BatchCount), Reason: "must be greater than 0"}
	case p.ParallelCount <= 0:
		return &ConfigurationError{Field: "parallelCount", Value: strconv.Itoa(p.ParallelCount), Reason: "must be greater than 0"}
	}
	return nil
}

// String formats the parameters as SIZExCOUNTxPARALLEL.
func (p BatchParameters) String() string {
	return fmt.Sprintf("%dx%dx%d", p.BatchSize, p.BatchCount, p.ParallelCount)
}

// ParseParams parses a comma-separated list of SIZExCOUNTxPARALLEL triples,
// such as "50x100x100,50x100x1000". Every parsed set is validated.
func ParseParams(value string) ([]BatchParameters, error) {
	var sets []BatchParameters
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(strings.ToLower(item), "x")
		if len(parts) != 3 {
			return nil, &ConfigurationError{Field: "params", Value: item, Reason: "expected SIZExCOUNTxPARALLEL"}
		}

		var numbers [3]int
		for i, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, &ConfigurationError{Field: "params", Value: item, Reason: "not a number: " + part}
			}
			numbers[i] = n
		}

		set := BatchParameters{BatchSize: numbers[0], BatchCount: numbers[1], ParallelCount: numbers[2]}
		if err := set.Validate(); err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		return nil, &ConfigurationError{Field: "params", Value: value, Reason: "at least one parameter set is required"}
	}
	return sets, nil
}
