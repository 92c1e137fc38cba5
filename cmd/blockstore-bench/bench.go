package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/KevoDB/blockstore/pkg/blockstore"
)

// benchParams describes one benchmark run
type benchParams struct {
	numKeys   int
	valueSize int
	duration  time.Duration
	seed      int64
}

func makeValue(size int) []byte {
	value := make([]byte, size)
	for i := range value {
		value[i] = byte(i % 256)
	}
	return value
}

func benchKey(i int) string {
	return fmt.Sprintf("key-%010d", i)
}

// placement returns the reused and appended block counters of a store
func placement(s *blockstore.Store) (uint64, uint64) {
	stats := s.Stats()
	reused, _ := stats["blocks_reused"].(uint64)
	appended, _ := stats["blocks_appended"].(uint64)
	return reused, appended
}

func finish(name string, s *blockstore.Store, p benchParams, ops int, start time.Time, reused0, appended0 uint64) BenchmarkResult {
	elapsed := time.Since(start)
	reused, appended := placement(s)
	reused -= reused0
	appended -= appended0

	result := BenchmarkResult{
		BenchmarkType:  name,
		NumKeys:        p.numKeys,
		ValueSize:      p.valueSize,
		BlockSize:      s.BlockSize(),
		Operations:     ops,
		Duration:       elapsed.Seconds(),
		ArenaBytes:     s.ArenaSize(),
		OrphanedBlocks: s.OrphanedBlocks(),
		Timestamp:      time.Now(),
	}

	if elapsed > 0 {
		result.Throughput = float64(ops) / elapsed.Seconds()
	}
	if ops > 0 {
		result.Latency = float64(elapsed.Microseconds()) / float64(ops)
	}
	if placed := reused + appended; placed > 0 {
		result.ReuseRatio = float64(reused) / float64(placed)
	}

	return result
}

// runInsertBenchmark writes keys in a cycle of numKeys, so later rounds
// overwrite earlier ones.
func runInsertBenchmark(s *blockstore.Store, p benchParams) BenchmarkResult {
	value := makeValue(p.valueSize)
	reused0, appended0 := placement(s)

	start := time.Now()
	deadline := start.Add(p.duration)
	ops := 0

	for time.Now().Before(deadline) {
		s.Insert(benchKey(ops%p.numKeys), value)
		ops++
	}

	return finish("Insert", s, p, ops, start, reused0, appended0)
}

// runGetBenchmark reads random keys, one in ten of them absent.
func runGetBenchmark(s *blockstore.Store, p benchParams) BenchmarkResult {
	value := makeValue(p.valueSize)
	for i := 0; i < p.numKeys; i++ {
		s.Insert(benchKey(i), value)
	}

	r := rand.New(rand.NewSource(p.seed))
	reused0, appended0 := placement(s)

	start := time.Now()
	deadline := start.Add(p.duration)
	ops, hits := 0, 0

	for time.Now().Before(deadline) {
		if _, ok := s.Get(benchKey(r.Intn(p.numKeys + p.numKeys/10))); ok {
			hits++
		}
		ops++
	}

	result := finish("Get", s, p, ops, start, reused0, appended0)
	if ops > 0 {
		result.HitRate = float64(hits) / float64(ops) * 100
	}
	return result
}

// runChurnBenchmark removes and reinserts random keys with sizes varying
// around valueSize, which is where free block reuse pays off.
func runChurnBenchmark(s *blockstore.Store, p benchParams) BenchmarkResult {
	value := makeValue(p.valueSize + p.valueSize/2)
	for i := 0; i < p.numKeys; i++ {
		s.Insert(benchKey(i), value[:p.valueSize])
	}

	r := rand.New(rand.NewSource(p.seed))
	reused0, appended0 := placement(s)

	start := time.Now()
	deadline := start.Add(p.duration)
	ops := 0

	for time.Now().Before(deadline) {
		key := benchKey(r.Intn(p.numKeys))
		size := p.valueSize/2 + r.Intn(p.valueSize+1)
		s.Remove(key)
		s.Insert(key, value[:size])
		ops += 2
	}

	return finish("Churn", s, p, ops, start, reused0, appended0)
}
