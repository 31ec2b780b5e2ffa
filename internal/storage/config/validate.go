package config

import (
	"fmt"
	"os"
	"path/filepath"

	defaults "github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/logging"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	// DataDir
	if c.DataDir == "" {
		errs = append(errs, errors.NewMissingField("data_dir"))
	}

	// Retention
	if err := c.Retention.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retention: %w", err))
	}

	// Percentile
	if a := c.Percentile.Accuracy; !(a >= defaults.MinPercentileAccuracy && a <= defaults.MaxPercentileAccuracy) {
		errs = append(errs, errors.NewValidation("percentile.accuracy",
			fmt.Sprintf("must be between %g and %g", defaults.MinPercentileAccuracy, defaults.MaxPercentileAccuracy)))
	}

	// Persistence
	switch c.Persistence.Compression {
	case "snappy", "none":
	default:
		errs = append(errs, errors.NewValidation("persistence.compression", "must be one of: snappy, none"))
	}

	// Lock
	if c.Lock.Timeout < 0 {
		errs = append(errs, errors.NewValidation("lock.timeout", "must be non-negative"))
	}

	// Logging
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, errors.NewValidation("logging.level", err.Error()))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, errors.NewValidation("logging.format", "must be one of: text, json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the retention configuration.
func (c *RetentionConfig) Validate() error {
	var errs []error

	fields := []struct {
		name  string
		value int
	}{
		{"default", c.Default},
		{"five_minute", c.FiveMinute},
		{"one_hour", c.OneHour},
		{"six_hour", c.SixHour},
		{"twelve_hour", c.TwelveHour},
		{"one_day", c.OneDay},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > defaults.MaxRetention {
			errs = append(errs, errors.NewValidation(f.name,
				fmt.Sprintf("must be between 0 and %d", defaults.MaxRetention)))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DatabasePath resolves a database file name. An empty dir falls back to
// DataDir and an empty name to the default file name.
func (c *Config) DatabasePath(dir, name string) string {
	if dir == "" {
		dir = c.DataDir
	}
	if name == "" {
		name = defaults.DefaultFilename
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EnsureDatabaseDir creates the directory that will hold the database at
// path.
func (c *Config) EnsureDatabaseDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaults.DefaultDirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
