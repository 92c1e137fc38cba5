package stats

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// OperationType defines the type of operation being tracked
type OperationType string

// Block store operation types
const (
	OpInsert OperationType = "insert"
	OpGet    OperationType = "get"
	OpRemove OperationType = "remove"
	OpPush   OperationType = "push"
	OpPull   OperationType = "pull"
	OpVerify OperationType = "verify"
	OpCheck  OperationType = "check"
)

// AtomicCollector provides centralized statistics collection with minimal contention
// using atomic operations for thread safety
type AtomicCollector struct {
	counts   map[OperationType]*atomic.Uint64
	countsMu sync.RWMutex // Only used when creating new counter entries

	lastOpTime   map[OperationType]time.Time
	lastOpTimeMu sync.RWMutex

	getHits   atomic.Uint64
	getMisses atomic.Uint64

	totalBytesRead    atomic.Uint64
	totalBytesWritten atomic.Uint64

	blocksReused   atomic.Uint64
	blocksAppended atomic.Uint64

	// Arena gauges, overwritten on every TrackArena
	arenaBytes     atomic.Uint64
	freeBlocks     atomic.Uint64
	liveKeys       atomic.Uint64
	liveBlocks     atomic.Uint64
	orphanedBlocks atomic.Uint64

	errors   map[string]*atomic.Uint64
	errorsMu sync.RWMutex // Only used when creating new error entries

	latencies   map[OperationType]*LatencyTracker
	latenciesMu sync.RWMutex // Only used when creating new latency trackers
}

// LatencyTracker maintains running statistics about operation latencies
type LatencyTracker struct {
	count atomic.Uint64
	sum   atomic.Uint64 // sum in nanoseconds
	max   atomic.Uint64 // max in nanoseconds
	min   atomic.Uint64 // min in nanoseconds, 0 until the first sample
}

// NewAtomicCollector creates a new atomic statistics collector
func NewAtomicCollector() *AtomicCollector {
	return &AtomicCollector{
		counts:     make(map[OperationType]*atomic.Uint64),
		lastOpTime: make(map[OperationType]time.Time),
		errors:     make(map[string]*atomic.Uint64),
		latencies:  make(map[OperationType]*LatencyTracker),
	}
}

// TrackOperation increments the counter for the specified operation type
func (c *AtomicCollector) TrackOperation(op OperationType) {
	c.getOrCreateCounter(op).Add(1)
	c.touch(op)
}

// TrackOperationWithLatency tracks an operation and its latency
func (c *AtomicCollector) TrackOperationWithLatency(op OperationType, latencyNs uint64) {
	c.getOrCreateCounter(op).Add(1)
	c.touch(op)

	tracker := c.getOrCreateLatencyTracker(op)
	tracker.count.Add(1)
	tracker.sum.Add(latencyNs)

	for {
		current := tracker.max.Load()
		if latencyNs <= current {
			break
		}
		if tracker.max.CompareAndSwap(current, latencyNs) {
			break
		}
	}

	for {
		current := tracker.min.Load()
		if current != 0 && latencyNs >= current {
			break
		}
		if tracker.min.CompareAndSwap(current, latencyNs) {
			break
		}
	}
}

// TrackLookup records a read hit or miss
func (c *AtomicCollector) TrackLookup(hit bool) {
	if hit {
		c.getHits.Add(1)
	} else {
		c.getMisses.Add(1)
	}
}

// TrackError increments the counter for the specified error type
func (c *AtomicCollector) TrackError(errorType string) {
	c.errorsMu.RLock()
	counter, exists := c.errors[errorType]
	c.errorsMu.RUnlock()

	if !exists {
		c.errorsMu.Lock()
		if counter, exists = c.errors[errorType]; !exists {
			counter = &atomic.Uint64{}
			c.errors[errorType] = counter
		}
		c.errorsMu.Unlock()
	}

	counter.Add(1)
}

// TrackBytes adds the specified number of bytes to the read or write counter
func (c *AtomicCollector) TrackBytes(isWrite bool, bytes uint64) {
	if isWrite {
		c.totalBytesWritten.Add(bytes)
	} else {
		c.totalBytesRead.Add(bytes)
	}
}

// TrackPlacement accumulates block placement counts
func (c *AtomicCollector) TrackPlacement(reused, appended uint64) {
	c.blocksReused.Add(reused)
	c.blocksAppended.Add(appended)
}

// TrackArena stores the latest arena gauges
func (c *AtomicCollector) TrackArena(state ArenaState) {
	c.arenaBytes.Store(state.ArenaBytes)
	c.freeBlocks.Store(state.FreeBlocks)
	c.liveKeys.Store(state.LiveKeys)
	c.liveBlocks.Store(state.LiveBlocks)
	c.orphanedBlocks.Store(state.OrphanedBlocks)
}

// GetStats returns all statistics as a map
func (c *AtomicCollector) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	c.countsMu.RLock()
	for op, counter := range c.counts {
		stats[string(op)+"_ops"] = counter.Load()
	}
	c.countsMu.RUnlock()

	c.lastOpTimeMu.RLock()
	for op, timestamp := range c.lastOpTime {
		stats["last_"+string(op)+"_time"] = timestamp.UnixNano()
	}
	c.lastOpTimeMu.RUnlock()

	stats["get_hits"] = c.getHits.Load()
	stats["get_misses"] = c.getMisses.Load()
	stats["total_bytes_read"] = c.totalBytesRead.Load()
	stats["total_bytes_written"] = c.totalBytesWritten.Load()
	stats["blocks_reused"] = c.blocksReused.Load()
	stats["blocks_appended"] = c.blocksAppended.Load()

	stats["arena_bytes"] = c.arenaBytes.Load()
	stats["arena_free_blocks"] = c.freeBlocks.Load()
	stats["arena_live_keys"] = c.liveKeys.Load()
	stats["arena_live_blocks"] = c.liveBlocks.Load()
	stats["arena_orphaned_blocks"] = c.orphanedBlocks.Load()

	c.errorsMu.RLock()
	errorStats := make(map[string]uint64, len(c.errors))
	for errType, counter := range c.errors {
		errorStats[errType] = counter.Load()
	}
	c.errorsMu.RUnlock()
	stats["errors"] = errorStats

	c.latenciesMu.RLock()
	for op, tracker := range c.latencies {
		count := tracker.count.Load()
		if count == 0 {
			continue
		}

		latencyStats := map[string]interface{}{
			"count":  count,
			"avg_ns": tracker.sum.Load() / count,
		}
		if min := tracker.min.Load(); min != 0 {
			latencyStats["min_ns"] = min
		}
		if max := tracker.max.Load(); max != 0 {
			latencyStats["max_ns"] = max
		}

		stats[string(op)+"_latency"] = latencyStats
	}
	c.latenciesMu.RUnlock()

	return stats
}

// GetStatsFiltered returns statistics filtered by prefix
func (c *AtomicCollector) GetStatsFiltered(prefix string) map[string]interface{} {
	allStats := c.GetStats()
	filtered := make(map[string]interface{})

	for key, value := range allStats {
		if strings.HasPrefix(key, prefix) {
			filtered[key] = value
		}
	}

	return filtered
}

func (c *AtomicCollector) touch(op OperationType) {
	c.lastOpTimeMu.Lock()
	c.lastOpTime[op] = time.Now()
	c.lastOpTimeMu.Unlock()
}

// getOrCreateCounter gets or creates an atomic counter for the operation
func (c *AtomicCollector) getOrCreateCounter(op OperationType) *atomic.Uint64 {
	c.countsMu.RLock()
	counter, exists := c.counts[op]
	c.countsMu.RUnlock()

	if !exists {
		c.countsMu.Lock()
		if counter, exists = c.counts[op]; !exists {
			counter = &atomic.Uint64{}
			c.counts[op] = counter
		}
		c.countsMu.Unlock()
	}

	return counter
}

// getOrCreateLatencyTracker gets or creates a latency tracker for the operation
func (c *AtomicCollector) getOrCreateLatencyTracker(op OperationType) *LatencyTracker {
	c.latenciesMu.RLock()
	tracker, exists := c.latencies[op]
	c.latenciesMu.RUnlock()

	if !exists {
		c.latenciesMu.Lock()
		if tracker, exists = c.latencies[op]; !exists {
			tracker = &LatencyTracker{}
			c.latencies[op] = tracker
		}
		c.latenciesMu.Unlock()
	}

	return tracker
}
