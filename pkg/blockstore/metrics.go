// ABOUTME: Block store telemetry metrics interface and implementation for tracking store operations
// ABOUTME: Records operation latency and status, bytes moved, block placement and arena growth

package blockstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/KevoDB/blockstore/pkg/telemetry"
)

// StoreMetrics defines the interface for block store telemetry operations.
// All metrics are optional - implementations can safely be no-op.
type StoreMetrics interface {
	telemetry.ComponentMetrics

	// RecordOperation records latency and outcome of a single store operation.
	RecordOperation(ctx context.Context, opType string, status string, duration time.Duration)

	// RecordBytes records value bytes written into or read out of the store.
	RecordBytes(ctx context.Context, opType string, bytes int64)

	// RecordPlacement records where the blocks of one write were placed.
	RecordPlacement(ctx context.Context, reused int, appended int)

	// RecordArenaState records the arena size and block accounting after a mutation.
	RecordArenaState(ctx context.Context, arenaBytes int64, freeBlocks int, orphanedBlocks int, liveKeys int)
}

// storeMetrics implements StoreMetrics using the telemetry interface.
type storeMetrics struct {
	tel telemetry.Telemetry
}

// NewStoreMetrics creates a new block store metrics implementation.
// If tel is nil, returns a no-op implementation.
func NewStoreMetrics(tel telemetry.Telemetry) StoreMetrics {
	if tel == nil {
		return &noopStoreMetrics{}
	}
	return &storeMetrics{tel: tel}
}

// NewNoopStoreMetrics creates a no-op metrics implementation.
func NewNoopStoreMetrics() StoreMetrics {
	return &noopStoreMetrics{}
}

func (m *storeMetrics) RecordOperation(ctx context.Context, opType string, status string, duration time.Duration) {
	m.tel.RecordHistogram(ctx, "blockstore.operation.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
		attribute.String(telemetry.AttrOperationType, opType),
	)

	m.tel.RecordCounter(ctx, "blockstore.operations.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
		attribute.String(telemetry.AttrOperationType, opType),
		attribute.String(telemetry.AttrStatus, status),
	)
}

func (m *storeMetrics) RecordBytes(ctx context.Context, opType string, bytes int64) {
	telemetry.RecordBytes(ctx, m.tel, "blockstore.bytes.total", bytes,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
		attribute.String(telemetry.AttrOperationType, opType),
	)
}

func (m *storeMetrics) RecordPlacement(ctx context.Context, reused int, appended int) {
	if reused > 0 {
		m.tel.RecordCounter(ctx, "blockstore.blocks.placed", int64(reused),
			attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
			attribute.String(telemetry.AttrPlacement, telemetry.PlacementReused),
		)
	}

	if appended > 0 {
		m.tel.RecordCounter(ctx, "blockstore.blocks.placed", int64(appended),
			attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
			attribute.String(telemetry.AttrPlacement, telemetry.PlacementAppended),
		)
	}
}

func (m *storeMetrics) RecordArenaState(ctx context.Context, arenaBytes int64, freeBlocks int, orphanedBlocks int, liveKeys int) {
	m.tel.RecordHistogram(ctx, "blockstore.arena.size", float64(arenaBytes),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
	)

	m.tel.RecordHistogram(ctx, "blockstore.arena.free_blocks", float64(freeBlocks),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
	)

	m.tel.RecordHistogram(ctx, "blockstore.arena.orphaned_blocks", float64(orphanedBlocks),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
	)

	m.tel.RecordHistogram(ctx, "blockstore.keys", float64(liveKeys),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentBlockStore),
	)
}

// Close releases any resources held by the metrics implementation.
func (m *storeMetrics) Close() error {
	return nil
}

// noopStoreMetrics provides a no-operation implementation for disabled telemetry.
type noopStoreMetrics struct{}

func (n *noopStoreMetrics) RecordOperation(ctx context.Context, opType string, status string, duration time.Duration) {
}

func (n *noopStoreMetrics) RecordBytes(ctx context.Context, opType string, bytes int64) {}

func (n *noopStoreMetrics) RecordPlacement(ctx context.Context, reused int, appended int) {}

func (n *noopStoreMetrics) RecordArenaState(ctx context.Context, arenaBytes int64, freeBlocks int, orphanedBlocks int, liveKeys int) {
}

func (n *noopStoreMetrics) Close() error {
	return nil
}
