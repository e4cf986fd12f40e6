// Package jsonldb provides a generic, concurrent-safe, JSONL-backed data store.
//
// The package centers around [Table], a generic container that stores rows in
// a JSONL (JSON Lines) file with full in-memory caching for fast reads. Tables
// are safe for concurrent use by multiple goroutines.
//
// [Table.Modify] holds the write lock for the entire read-modify-write
// operation, so callers never need retry loops. The tradeoff is lower
// throughput under contention, which is acceptable for local file storage.
//
// [UniqueIndex] and [Index] provide O(1) lookups by arbitrary keys, staying
// synchronized with table mutations via [TableObserver].
package jsonldb
