package blockstore

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/KevoDB/blockstore/pkg/stats"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

// BlockSize returns the fixed block size in bytes
func (s *Store) BlockSize() int {
	return s.blockSize
}

// ArenaSize returns the arena length in bytes
func (s *Store) ArenaSize() int {
	return len(s.arena)
}

// ArenaBlocks returns the number of blocks ever appended to the arena
func (s *Store) ArenaBlocks() int {
	return len(s.arena) / s.blockSize
}

// Len returns the number of live keys
func (s *Store) Len() int {
	return len(s.index)
}

// Keys returns the live keys in sorted order
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.index))
	for key := range s.index {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Contains reports whether key is live
func (s *Store) Contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Lookup returns a copy of the index entry for key
func (s *Store) Lookup(key string) (Entry, bool) {
	entry, ok := s.index[key]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// FreeBlocks returns the pending free offsets in the order they will be reused
func (s *Store) FreeBlocks() []int {
	return s.free.snapshot()
}

// OrphanedBlocks returns the number of arena blocks that are neither
// referenced by a live key nor queued for reuse.
func (s *Store) OrphanedBlocks() int {
	return s.ArenaBlocks() - s.free.len() - s.liveBlocks
}

// Stats returns the store's operation counters and arena gauges
func (s *Store) Stats() map[string]interface{} {
	return s.stats.GetStats()
}

// Verify recomputes the checksum of key's value and compares it with the
// one recorded when the value was written.
func (s *Store) Verify(key string) error {
	start := time.Now()

	entry, ok := s.index[key]
	if !ok {
		s.observe(stats.OpVerify, telemetry.StatusMiss, start)
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	if sum := xxhash.Sum64(s.assemble(entry)); sum != entry.Checksum {
		s.observeAs(stats.OpVerify, telemetry.StatusError, errChecksumKind, start)
		return fmt.Errorf("%w: key %q has %016x, recorded %016x", ErrChecksumMismatch, key, sum, entry.Checksum)
	}

	s.observe(stats.OpVerify, telemetry.StatusSuccess, start)
	return nil
}

// Check validates the arena, free list and index against each other.
// Every violation found is reported, each wrapping ErrCorrupted.
func (s *Store) Check() error {
	start := time.Now()

	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrCorrupted}, args...)...))
	}

	if len(s.arena)%s.blockSize != 0 {
		fail("arena length %d is not a multiple of block size %d", len(s.arena), s.blockSize)
	}

	valid := func(off int) bool {
		return off%s.blockSize == 0 && s.inBounds(off)
	}

	free := make(map[int]struct{}, s.free.len())
	for _, off := range s.free.snapshot() {
		if !valid(off) {
			fail("free offset %d is unaligned or out of bounds", off)
		}
		if _, dup := free[off]; dup {
			fail("free offset %d is queued twice", off)
		}
		free[off] = struct{}{}
	}

	owners := make(map[int]string, max(s.liveBlocks, 0))
	live := 0
	for _, key := range s.Keys() {
		entry := s.index[key]
		live += len(entry.Blocks)

		if entry.padding(s.blockSize) < 0 {
			fail("key %q has length %d beyond its %d blocks", key, entry.Length, len(entry.Blocks))
		}

		for _, off := range entry.Blocks {
			if !valid(off) {
				fail("key %q references unaligned or out of bounds offset %d", key, off)
			}
			if _, ok := free[off]; ok {
				fail("offset %d is both free and referenced by key %q", off, key)
			}
			if owner, ok := owners[off]; ok {
				fail("offset %d is referenced by keys %q and %q", off, owner, key)
			}
			owners[off] = key
		}
	}

	if live != s.liveBlocks {
		fail("live block count is %d, index references %d", s.liveBlocks, live)
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("Integrity check found %d problems", len(errs))
		s.observe(stats.OpCheck, telemetry.StatusError, start)
		return err
	}

	s.observe(stats.OpCheck, telemetry.StatusSuccess, start)
	return nil
}
