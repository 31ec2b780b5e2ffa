// Package storage implements a file-persisted round-robin database.
//
// Architecture:
//
//	          update                    fetch / export
//	             │                             │
//	             ▼                             ▼
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│    Codec    │────▶│  Database   │────▶│  Evaluator  │
//	│ (load/save) │◀────│             │     │   (query)   │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                      │         │
//	                      ▼         ▼
//	             ┌─────────────┐ ┌─────────────┐
//	             │ Sample Ring │ │  Aggregate  │
//	             │  (buffer)   │ │   Manager   │
//	             └─────────────┘ └─────────────┘
//
// Every operation loads the whole file, works on memory and, for create and
// update, atomically replaces the file. There is no resident process.
//
// The storage system provides:
//   - A fixed-capacity ring of raw multi-valued samples
//   - Wall-clock windows at five granularities (5m, 1h, 6h, 12h, 1d)
//   - COUNT, SUM, MIN, MAX, MEAN and DDSketch percentile transforms
//   - Checksummed, optionally snappy-compressed single-file persistence
//   - Parquet export of samples and transform results
package storage
