// Package types defines the core data types used throughout the storage system.
//
// Key types:
//   - Sample: One multi-valued observation appended by update
//   - Granularity: Window duration (FIVEMINUTE, ONEHOUR, SIXHOUR, TWELVEHOUR, ONEDAY)
//   - Transform: Declared consolidation pipeline (function, granularity, target)
//   - Result: One evaluated bucket returned by fetch
package types
