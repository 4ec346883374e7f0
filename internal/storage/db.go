// Package storage provides the key-value backends that hold encrypted
// vault blobs.
package storage

import "errors"

// ErrNotFound is returned when a key or vault does not exist.
var ErrNotFound = errors.New("not found")

// DB is the interface for key-value storage.
type DB interface {
	// Get returns ErrNotFound if the key does not exist.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
