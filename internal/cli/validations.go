package cli

import (
	"strings"

	"github.com/shivanshkc/esbench/internal/config"
)

// validateRunConfig validates the configuration of the run command, after
// the flags have been applied.
func validateRunConfig(cfg config.Config) string {
	// The backend is picked by the scheme.
	if !strings.Contains(cfg.ConnectionString, "://") {
		return "Connection string must start with a scheme, such as esdb://."
	}

	if err := cfg.Validate(); err != nil {
		return "Invalid configuration: " + err.Error()
	}

	return ""
}
