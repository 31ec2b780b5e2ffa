// Package config provides configuration defaults and utilities
// for the rrdb command.
//
// This package defines all configurable constants with documented defaults.
// Users can override most of these values via rrdb.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Database Limits
// =============================================================================

const (
	// FileVersion is the on-disk format version written by this build.
	FileVersion = 2

	// MaxDatasets is the maximum number of parallel values per sample.
	MaxDatasets = 20

	// MaxTransformsPerDataset bounds the transforms declared per dataset.
	// The total limit is MaxDatasets * MaxTransformsPerDataset.
	MaxTransformsPerDataset = 5

	// MaxTransforms is the maximum number of transforms in one database.
	MaxTransforms = MaxDatasets * MaxTransformsPerDataset

	// MaxSampleCapacity bounds the raw ring size to keep a whole-file
	// load cheap.
	MaxSampleCapacity = 1 << 20

	// MaxRetention bounds the closed history kept per window.
	MaxRetention = 1 << 20
)

// =============================================================================
// Consolidation Defaults
// =============================================================================

const (
	// DefaultRetention is the closed-bucket history kept per window when
	// neither the config file nor the create command sets one.
	// Zero means "same as the sample capacity", which mirrors how many
	// consolidated points the classic rrdb file kept per transform.
	// Override via config: retention.default
	DefaultRetention = 0

	// DefaultPercentileAccuracy is the relative accuracy of the DDSketch
	// kept for percentile transforms (0.01 = 1% error).
	// Override via config: percentile.accuracy
	DefaultPercentileAccuracy = 0.01

	// MinPercentileAccuracy and MaxPercentileAccuracy bound
	// percentile.accuracy. Below the minimum the sketch mapping degenerates.
	MinPercentileAccuracy = 1e-4
	MaxPercentileAccuracy = 0.5
)

// =============================================================================
// Persistence Defaults
// =============================================================================

const (
	// DefaultCompression is the payload compression used on save.
	// Override via config: persistence.compression
	DefaultCompression = "snappy"

	// DefaultFsync controls whether a save is fsynced before the rename.
	// Override via config: persistence.fsync
	DefaultFsync = true

	// DefaultFileMode is the permission of newly created database files.
	DefaultFileMode = 0o664

	// DefaultDirMode is the permission of directories created for databases.
	DefaultDirMode = 0o755
)

// =============================================================================
// Locking Defaults
// =============================================================================

const (
	// DefaultLockTimeout is how long a command waits for the advisory
	// lock on a database file before giving up.
	// Override via config: lock.timeout
	DefaultLockTimeout = 5 * time.Second

	// DefaultLockRetryInterval is the polling interval while waiting.
	DefaultLockRetryInterval = 20 * time.Millisecond

	// LockSuffix is appended to the database path to name its lock file.
	LockSuffix = ".lock"
)

// =============================================================================
// Shell Defaults
// =============================================================================

const (
	// DefaultFilename is used when --filename is not given.
	DefaultFilename = "rrdb.rrdb"

	// MaxCommandLength is the longest line accepted in pipe mode.
	MaxCommandLength = 600

	// PromptPrefix is shown in interactive mode.
	PromptPrefix = "rrdb> "
)
