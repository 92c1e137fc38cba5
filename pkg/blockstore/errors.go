package blockstore

import "errors"

var (
	// ErrInvalidBlockSize is returned when a store is constructed with a
	// block size that is not positive
	ErrInvalidBlockSize = errors.New("block size must be positive")

	// ErrKeyNotFound is returned by operations that report absence as an error
	ErrKeyNotFound = errors.New("key not found")

	// ErrChecksumMismatch indicates the stored bytes of a key no longer
	// match the checksum recorded when the key was written
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrCorrupted indicates a violated arena, free list or index invariant
	ErrCorrupted = errors.New("block store corrupted")
)
