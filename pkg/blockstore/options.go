package blockstore

import (
	"github.com/KevoDB/blockstore/pkg/common/log"
	"github.com/KevoDB/blockstore/pkg/stats"
)

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger sets the logger used for debug and integrity messages.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the telemetry metrics sink.
func WithMetrics(metrics StoreMetrics) Option {
	return func(s *Store) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithStats shares a statistics collector with the store.
func WithStats(collector stats.Collector) Option {
	return func(s *Store) {
		if collector != nil {
			s.stats = collector
		}
	}
}

// WithReclaimOnOverwrite frees a key's previous blocks when the key is
// written again. Without it the previous blocks are orphaned.
func WithReclaimOnOverwrite(enabled bool) Option {
	return func(s *Store) {
		s.reclaimOnOverwrite = enabled
	}
}

// WithVerifyChecksums makes Get treat a value whose checksum no longer
// matches as absent.
func WithVerifyChecksums(enabled bool) Option {
	return func(s *Store) {
		s.verifyChecksums = enabled
	}
}

// WithInitialBlocks preallocates arena capacity for n blocks. The arena
// length is unaffected.
func WithInitialBlocks(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.initialBlocks = n
		}
	}
}
