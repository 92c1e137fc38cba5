package stats

// Provider defines the interface for components that provide statistics
type Provider interface {
	// GetStats returns all statistics
	GetStats() map[string]interface{}

	// GetStatsFiltered returns statistics filtered by prefix
	GetStatsFiltered(prefix string) map[string]interface{}
}

// Collector interface defines methods for collecting statistics
type Collector interface {
	Provider

	// TrackOperation records a single operation
	TrackOperation(op OperationType)

	// TrackOperationWithLatency records an operation with its latency
	TrackOperationWithLatency(op OperationType, latencyNs uint64)

	// TrackLookup records whether a read found its key
	TrackLookup(hit bool)

	// TrackError increments the counter for the specified error type
	TrackError(errorType string)

	// TrackBytes adds the specified number of bytes to the read or write counter
	TrackBytes(isWrite bool, bytes uint64)

	// TrackPlacement records how many blocks a write took from the free
	// list and how many it appended to the arena
	TrackPlacement(reused, appended uint64)

	// TrackArena records the current arena gauges
	TrackArena(state ArenaState)
}

// ArenaState is a point-in-time view of a store's space accounting.
type ArenaState struct {
	ArenaBytes     uint64
	FreeBlocks     uint64
	LiveKeys       uint64
	LiveBlocks     uint64
	OrphanedBlocks uint64
}

// Ensure AtomicCollector implements the Collector interface
var _ Collector = (*AtomicCollector)(nil)
