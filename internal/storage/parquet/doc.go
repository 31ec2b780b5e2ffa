// Package parquet implements Parquet export of database contents.
//
// The package provides:
//   - SampleWriter/SampleReader for the raw sample ring
//   - ResultWriter/ResultReader for evaluated transform buckets
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//   - Type conversion between storage types and Parquet rows
package parquet
