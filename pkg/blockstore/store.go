// ABOUTME: Fixed-block in-memory keyed store that splits values into zero-padded blocks
// ABOUTME: Reuses freed blocks in FIFO order before growing the arena, which never shrinks

package blockstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/KevoDB/blockstore/pkg/common/log"
	"github.com/KevoDB/blockstore/pkg/config"
	"github.com/KevoDB/blockstore/pkg/stats"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

// Store keeps values in a single arena of fixed-size blocks.
//
// A Store is not safe for concurrent use. Wrap it in a Locked when more
// than one goroutine needs it.
type Store struct {
	blockSize int
	arena     []byte
	free      freeList
	index     map[string]Entry

	// liveBlocks counts offsets referenced by the index
	liveBlocks int

	reclaimOnOverwrite bool
	verifyChecksums    bool
	initialBlocks      int

	logger  log.Logger
	metrics StoreMetrics
	stats   stats.Collector
}

// New creates an empty store whose blocks are blockSize bytes.
func New(blockSize int, opts ...Option) (*Store, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBlockSize, blockSize)
	}

	s := &Store{
		blockSize: blockSize,
		index:     make(map[string]Entry),
		logger:    log.GetDefaultLogger().WithField("component", telemetry.ComponentBlockStore),
		metrics:   NewNoopStoreMetrics(),
		stats:     stats.NewAtomicCollector(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.initialBlocks > 0 {
		s.arena = make([]byte, 0, s.initialBlocks*blockSize)
	}

	s.logger.Info("Created block store with block size %d (reclaim on overwrite: %v, verify checksums: %v)",
		blockSize, s.reclaimOnOverwrite, s.verifyChecksums)

	return s, nil
}

// NewFromConfig creates a store from a validated configuration. Options
// are applied after the configured ones and may override them.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithReclaimOnOverwrite(cfg.ReclaimOnOverwrite),
		WithVerifyChecksums(cfg.VerifyChecksums),
		WithInitialBlocks(cfg.InitialBlocks),
	}

	return New(cfg.BlockSize, append(base, opts...)...)
}

// Insert stores value under key, replacing any previous entry.
//
// The value is split into blockSize chunks, the last one zero-padded.
// Chunks go to free blocks first, oldest freed first, and the rest are
// appended to the arena. The previous entry's blocks are orphaned unless
// reclaim on overwrite is enabled.
func (s *Store) Insert(key string, value []byte) {
	start := time.Now()

	if s.reclaimOnOverwrite {
		s.release(key)
	}

	n := s.blockCount(len(value))
	blocks := make([]int, 0, n)
	reused, appended := 0, 0

	for i := 0; i < n; i++ {
		lo := i * s.blockSize
		hi := min(lo+s.blockSize, len(value))

		off, wasFree := s.place(value[lo:hi])
		if wasFree {
			reused++
		} else {
			appended++
		}
		blocks = append(blocks, off)
	}

	s.install(key, Entry{
		Length:   len(value),
		Blocks:   blocks,
		Checksum: xxhash.Sum64(value),
	})

	s.logger.Debug("Inserted %q: %d bytes in %d blocks (%d reused, %d appended)",
		key, len(value), n, reused, appended)

	s.stats.TrackBytes(true, uint64(len(value)))
	s.recordPlacement(reused, appended)
	s.observe(stats.OpInsert, telemetry.StatusSuccess, start)
	s.metrics.RecordBytes(context.Background(), telemetry.OpTypeInsert, int64(len(value)))
	s.recordArena()
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	start := time.Now()

	entry, ok := s.index[key]
	if !ok {
		s.stats.TrackLookup(false)
		s.observe(stats.OpGet, telemetry.StatusMiss, start)
		return nil, false
	}

	value := s.assemble(entry)

	if s.verifyChecksums && xxhash.Sum64(value) != entry.Checksum {
		s.logger.Error("Checksum mismatch reading %q, treating as absent", key)
		s.stats.TrackLookup(false)
		s.observeAs(stats.OpGet, telemetry.StatusError, errChecksumKind, start)
		return nil, false
	}

	s.stats.TrackLookup(true)
	s.stats.TrackBytes(false, uint64(len(value)))
	s.observe(stats.OpGet, telemetry.StatusSuccess, start)
	s.metrics.RecordBytes(context.Background(), telemetry.OpTypeGet, int64(len(value)))

	return value, true
}

// Remove deletes key and queues its blocks for reuse. The arena bytes
// are left as they are until a later write overwrites them.
func (s *Store) Remove(key string) bool {
	start := time.Now()

	if !s.release(key) {
		s.observe(stats.OpRemove, telemetry.StatusMiss, start)
		return false
	}

	s.observe(stats.OpRemove, telemetry.StatusSuccess, start)
	s.recordArena()
	return true
}

// release drops key from the index and frees its blocks.
func (s *Store) release(key string) bool {
	entry, ok := s.index[key]
	if !ok {
		return false
	}

	s.free.push(entry.Blocks...)
	s.liveBlocks -= len(entry.Blocks)
	delete(s.index, key)

	s.logger.Debug("Released %q: %d blocks queued for reuse", key, len(entry.Blocks))
	return true
}

// install points key at entry. A previous entry still in the index is
// reclaimed or orphaned.
func (s *Store) install(key string, entry Entry) {
	if prior, ok := s.index[key]; ok {
		s.liveBlocks -= len(prior.Blocks)
		if s.reclaimOnOverwrite {
			s.free.push(prior.Blocks...)
		} else if len(prior.Blocks) > 0 {
			s.logger.Debug("Overwrite of %q orphaned %d blocks", key, len(prior.Blocks))
		}
	}

	s.index[key] = entry
	s.liveBlocks += len(entry.Blocks)
}

// place writes one chunk into the oldest free block, or a new block at
// the end of the arena, and returns its offset.
func (s *Store) place(chunk []byte) (int, bool) {
	if off, ok := s.free.pop(); ok {
		s.writeBlock(off, chunk)
		return off, true
	}
	return s.appendBlock(chunk), false
}

// writeBlock overwrites the block at off in place and zeroes its tail.
func (s *Store) writeBlock(off int, chunk []byte) {
	block := s.arena[off : off+s.blockSize]
	n := copy(block, chunk)
	clear(block[n:])
}

// appendBlock grows the arena by one block holding chunk.
func (s *Store) appendBlock(chunk []byte) int {
	off := len(s.arena)
	s.arena = slices.Grow(s.arena, s.blockSize)[:off+s.blockSize]
	s.writeBlock(off, chunk)
	return off
}

// assemble concatenates an entry's blocks and trims the padding. Blocks
// that fall outside the arena contribute nothing.
func (s *Store) assemble(entry Entry) []byte {
	out := make([]byte, 0, len(entry.Blocks)*s.blockSize)
	for _, off := range entry.Blocks {
		if !s.inBounds(off) {
			continue
		}
		out = append(out, s.arena[off:off+s.blockSize]...)
	}

	if len(out) > entry.Length {
		out = out[:entry.Length]
	}
	return out
}

func (s *Store) inBounds(off int) bool {
	return off >= 0 && off+s.blockSize <= len(s.arena)
}

func (s *Store) blockCount(n int) int {
	return (n + s.blockSize - 1) / s.blockSize
}

// observe records a finished operation in stats and metrics
// errChecksumKind is the error counter for values that fail their checksum.
const errChecksumKind = "checksum_mismatch"

func (s *Store) observe(op stats.OperationType, status string, start time.Time) {
	s.observeAs(op, status, string(op), start)
}

// observeAs records one operation, counting a failure once under errorKind.
func (s *Store) observeAs(op stats.OperationType, status, errorKind string, start time.Time) {
	elapsed := time.Since(start)
	s.stats.TrackOperationWithLatency(op, uint64(elapsed.Nanoseconds()))
	if status == telemetry.StatusError {
		s.stats.TrackError(errorKind)
	}
	s.metrics.RecordOperation(context.Background(), string(op), status, elapsed)
}

func (s *Store) recordPlacement(reused, appended int) {
	s.stats.TrackPlacement(uint64(reused), uint64(appended))
	s.metrics.RecordPlacement(context.Background(), reused, appended)
}

func (s *Store) recordArena() {
	s.stats.TrackArena(stats.ArenaState{
		ArenaBytes:     uint64(len(s.arena)),
		FreeBlocks:     uint64(s.free.len()),
		LiveKeys:       uint64(len(s.index)),
		LiveBlocks:     uint64(s.liveBlocks),
		OrphanedBlocks: uint64(s.OrphanedBlocks()),
	})
	s.metrics.RecordArenaState(context.Background(), int64(len(s.arena)), s.free.len(), s.OrphanedBlocks(), len(s.index))
}
