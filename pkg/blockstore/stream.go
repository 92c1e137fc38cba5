package blockstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/KevoDB/blockstore/pkg/stats"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

// Push reads r to EOF and stores what it read under key, one block at a
// time, with the same placement and overwrite rules as Insert.
//
// If r fails, the blocks claimed so far are returned to the free list
// and the index is left unchanged. With reclaim on overwrite the previous
// entry is only freed once the new value is complete.
func (s *Store) Push(key string, r io.Reader) (int64, error) {
	start := time.Now()

	buf := make([]byte, s.blockSize)
	blocks := make([]int, 0)
	digest := xxhash.New()
	reused, appended := 0, 0
	var total int64

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := buf[:n]
			_, _ = digest.Write(chunk)

			off, wasFree := s.place(chunk)
			if wasFree {
				reused++
			} else {
				appended++
			}
			blocks = append(blocks, off)
			total += int64(n)
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			s.free.push(blocks...)
			s.logger.Warn("Push of %q failed after %d bytes, returned %d blocks to the free list",
				key, total, len(blocks))
			s.recordPlacement(reused, appended)
			s.observe(stats.OpPush, telemetry.StatusError, start)
			s.recordArena()
			return total, fmt.Errorf("push %q: %w", key, err)
		}
	}

	s.install(key, Entry{
		Length:   int(total),
		Blocks:   blocks,
		Checksum: digest.Sum64(),
	})

	s.logger.Debug("Pushed %q: %d bytes in %d blocks (%d reused, %d appended)",
		key, total, len(blocks), reused, appended)

	s.stats.TrackBytes(true, uint64(total))
	s.recordPlacement(reused, appended)
	s.observe(stats.OpPush, telemetry.StatusSuccess, start)
	s.metrics.RecordBytes(context.Background(), telemetry.OpTypePush, total)
	s.recordArena()

	return total, nil
}

// Pull writes the value stored under key to w block by block.
func (s *Store) Pull(key string, w io.Writer) (int64, error) {
	start := time.Now()

	entry, ok := s.index[key]
	if !ok {
		s.observe(stats.OpPull, telemetry.StatusMiss, start)
		return 0, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	var written int64
	remaining := entry.Length

	for _, off := range entry.Blocks {
		if remaining <= 0 {
			break
		}
		if !s.inBounds(off) {
			continue
		}

		n := min(s.blockSize, remaining)
		m, err := w.Write(s.arena[off : off+n])
		written += int64(m)
		if err != nil {
			s.observe(stats.OpPull, telemetry.StatusError, start)
			return written, fmt.Errorf("pull %q: %w", key, err)
		}
		remaining -= n
	}

	s.stats.TrackBytes(false, uint64(written))
	s.observe(stats.OpPull, telemetry.StatusSuccess, start)
	s.metrics.RecordBytes(context.Background(), telemetry.OpTypePull, written)

	return written, nil
}
