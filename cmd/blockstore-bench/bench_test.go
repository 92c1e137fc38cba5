package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KevoDB/blockstore/pkg/blockstore"
	"github.com/KevoDB/blockstore/pkg/common/log"
)

func testStore(t *testing.T, opts ...blockstore.Option) *blockstore.Store {
	t.Helper()
	opts = append([]blockstore.Option{blockstore.WithLogger(log.NewStandardLogger(log.WithOutput(io.Discard)))}, opts...)
	s, err := blockstore.New(64, opts...)
	require.NoError(t, err)
	return s
}

var shortRun = benchParams{numKeys: 50, valueSize: 200, duration: 20 * time.Millisecond, seed: 1}

func TestChurnReusesBlocks(t *testing.T) {
	s := testStore(t)
	result := runChurnBenchmark(s, shortRun)

	require.Equal(t, "Churn", result.BenchmarkType)
	require.Positive(t, result.Operations)
	require.Greater(t, result.ReuseRatio, 0.5)
	require.Equal(t, s.ArenaSize(), result.ArenaBytes)
	require.NoError(t, s.Check())
}

func TestInsertOrphansUnlessReclaiming(t *testing.T) {
	orphaning := runInsertBenchmark(testStore(t), shortRun)
	require.Positive(t, orphaning.Operations)
	if orphaning.Operations > shortRun.numKeys {
		require.Positive(t, orphaning.OrphanedBlocks)
	}

	reclaiming := runInsertBenchmark(testStore(t, blockstore.WithReclaimOnOverwrite(true)), shortRun)
	require.Zero(t, reclaiming.OrphanedBlocks)
	// 200 bytes at 64 bytes per block: four blocks per key at most.
	require.LessOrEqual(t, reclaiming.ArenaBytes, shortRun.numKeys*4*64)
}

func TestGetHitRate(t *testing.T) {
	result := runGetBenchmark(testStore(t), shortRun)
	require.Positive(t, result.Operations)
	require.Greater(t, result.HitRate, 50.0)
	require.LessOrEqual(t, result.HitRate, 100.0)
}

func TestResultCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	results := []BenchmarkResult{{
		BenchmarkType:  "Churn",
		NumKeys:        10,
		ValueSize:      100,
		BlockSize:      64,
		Operations:     1234,
		Duration:       1.5,
		Throughput:     822.67,
		Latency:        1.216,
		ArenaBytes:     4096,
		ReuseRatio:     0.9375,
		OrphanedBlocks: 3,
		Timestamp:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	require.NoError(t, SaveResultCSV(results, path))

	loaded, err := LoadResultCSV(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.True(t, results[0].Timestamp.Equal(loaded[0].Timestamp))
	loaded[0].Timestamp = results[0].Timestamp
	require.Equal(t, results[0], loaded[0])
}

func TestPrintResultTable(t *testing.T) {
	var buf bytes.Buffer
	PrintResultTable(&buf, nil)
	require.Equal(t, "No results to display\n", buf.String())

	buf.Reset()
	PrintResultTable(&buf, []BenchmarkResult{{BenchmarkType: "Get", HitRate: 90, Latency: 2500}})
	require.True(t, strings.Contains(buf.String(), "90.00%"))
	require.True(t, strings.Contains(buf.String(), "2.50ms"))
}
