package cli

import (
	"fmt"
	"time"
)

// Config holds CLI client configuration
type Config struct {
	ServerURL      string
	Format         string
	Quiet          bool
	NoColor        bool
	RequestTimeout time.Duration
}

// LoadConfig validates and assembles the CLI configuration from flags.
func LoadConfig(serverURL, format string, quiet, noColor bool) (*Config, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}

	switch format {
	case "table", "json":
	default:
		return nil, fmt.Errorf("unsupported format: %s (expected table or json)", format)
	}

	return &Config{
		ServerURL:      serverURL,
		Format:         format,
		Quiet:          quiet,
		NoColor:        noColor,
		RequestTimeout: 30 * time.Second,
	}, nil
}
