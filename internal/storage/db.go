// Package storage provides key-value database abstractions used to keep
// client state (the task queue) between command invocations.
package storage

import "errors"

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in ascending key order.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	// NewBatch returns a write batch that is applied atomically on Commit.
	NewBatch() Batch
	Close() error
}

// Batch groups writes so they are applied together.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}
