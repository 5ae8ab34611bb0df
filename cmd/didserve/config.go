package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from DIDSERVE_* environment variables.  Flags
// override the environment.
type Config struct {
	// IO is "std", "ws", or "mq".
	IO string `envconfig:"IO" default:"std"`

	// Store optionally names a BoltDB file for results.
	Store string `envconfig:"STORE"`

	// Schedule is an optional cron expression for running
	// BatchFile.
	Schedule  string `envconfig:"SCHEDULE"`
	BatchFile string `envconfig:"BATCH_FILE"`

	// DataDir holds the data files that requests can name.
	DataDir string `envconfig:"DATA_DIR"`

	HaltOnEOF bool          `envconfig:"HALT_ON_EOF" default:"true"`
	Wait      time.Duration `envconfig:"WAIT" default:"1s"`

	Log LogConfig `envconfig:"LOG"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

// LoadConfig loads configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DIDSERVE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return &cfg, nil
}

// Flags adds flags with the current values as defaults.
func (c *Config) Flags(fs *flag.FlagSet) {
	fs.StringVar(&c.IO, "io", c.IO, `IO protocol: "std", "mq", or "ws"`)
	fs.StringVar(&c.Store, "store", c.Store, "Optional BoltDB filename for results")
	fs.StringVar(&c.Schedule, "schedule", c.Schedule, "Optional cron expression for running -batch-file")
	fs.StringVar(&c.BatchFile, "batch-file", c.BatchFile, "Batch file for -schedule")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory for the data files that requests name")
	fs.BoolVar(&c.HaltOnEOF, "halt-on-eof", c.HaltOnEOF, "Stop on input EOF")
	fs.DurationVar(&c.Wait, "wait", c.Wait, "Wait this long before shutting down couplings")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, `Log format: "text" or "json"`)
}

// Validate checks combinations of settings.
func (c *Config) Validate() error {
	switch c.IO {
	case "std", "ws", "mq", "mqtt":
	default:
		return fmt.Errorf("unknown io: '%s'", c.IO)
	}
	if c.Schedule != "" && c.BatchFile == "" {
		return fmt.Errorf("schedule '%s' without a batch file", c.Schedule)
	}
	return nil
}
