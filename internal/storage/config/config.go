// Package config loads the optional rrdb.yaml configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Config represents the complete configuration.
type Config struct {
	// DataDir is the directory used when a command gives no --dir.
	DataDir string `yaml:"data_dir"`

	// Retention defines how many closed buckets each window keeps.
	Retention RetentionConfig `yaml:"retention"`

	// Percentile configures DDSketch percentile transforms.
	Percentile PercentileConfig `yaml:"percentile"`

	// Persistence configures how database files are written.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Lock configures the advisory lock around each command.
	Lock LockConfig `yaml:"lock"`

	// Logging configures diagnostic output on stderr.
	Logging LoggingConfig `yaml:"logging"`
}

// RetentionConfig defines closed-bucket history per granularity.
// Zero means "use Default"; a zero Default means "same as the sample
// capacity of the database".
type RetentionConfig struct {
	Default    int `yaml:"default"`
	FiveMinute int `yaml:"five_minute"`
	OneHour    int `yaml:"one_hour"`
	SixHour    int `yaml:"six_hour"`
	TwelveHour int `yaml:"twelve_hour"`
	OneDay     int `yaml:"one_day"`
}

// PercentileConfig configures DDSketch percentile calculation.
type PercentileConfig struct {
	// Accuracy is the relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// PersistenceConfig configures database file writes.
type PersistenceConfig struct {
	// Compression is the payload compression: snappy, none.
	Compression string `yaml:"compression"`

	// Fsync syncs every save to stable storage before the rename.
	Fsync bool `yaml:"fsync"`
}

// LockConfig configures advisory locking.
type LockConfig struct {
	// Timeout is how long to wait for the lock. Zero fails immediately.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// For returns the retention of granularity g for a database holding
// sampleCapacity raw samples.
func (c *RetentionConfig) For(g types.Granularity, sampleCapacity int) int {
	var r int
	switch g {
	case types.FiveMinute:
		r = c.FiveMinute
	case types.OneHour:
		r = c.OneHour
	case types.SixHour:
		r = c.SixHour
	case types.TwelveHour:
		r = c.TwelveHour
	case types.OneDay:
		r = c.OneDay
	}
	if r <= 0 {
		r = c.Default
	}
	if r <= 0 {
		r = sampleCapacity
	}
	return r
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %v: %w", err, errors.ErrInvalidConfig)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %v: %w", err, errors.ErrInvalidConfig)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".",
		Retention: RetentionConfig{
			Default: defaults.DefaultRetention,
		},
		Percentile: PercentileConfig{
			Accuracy: defaults.DefaultPercentileAccuracy,
		},
		Persistence: PersistenceConfig{
			Compression: defaults.DefaultCompression,
			Fsync:       defaults.DefaultFsync,
		},
		Lock: LockConfig{
			Timeout: defaults.DefaultLockTimeout,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
