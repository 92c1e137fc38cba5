package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/KevoDB/blockstore/pkg/blockstore"
	"github.com/KevoDB/blockstore/pkg/common/log"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

const (
	defaultValueSize = 1000
	defaultKeyCount  = 10000
	defaultBlockSize = 256
)

var (
	// Command line flags
	benchmarkType = flag.String("type", "all", "Type of benchmark to run (insert, get, churn, or all)")
	duration      = flag.Duration("duration", 5*time.Second, "Duration to run each benchmark")
	numKeys       = flag.Int("keys", defaultKeyCount, "Number of keys to use")
	valueSize     = flag.Int("value-size", defaultValueSize, "Size of values in bytes")
	blockSize     = flag.Int("block-size", defaultBlockSize, "Block size in bytes")
	reclaim       = flag.Bool("reclaim", false, "Free previous blocks when a key is overwritten")
	seed          = flag.Int64("seed", 1, "Random seed for key selection")
	cpuProfile    = flag.String("cpu-profile", "", "Write CPU profile to file")
	memProfile    = flag.String("mem-profile", "", "Write memory profile to file")
	resultsFile   = flag.String("results", "", "CSV file to write results to (in addition to stdout)")
)

func main() {
	flag.Parse()

	if *numKeys <= 0 || *valueSize <= 0 {
		fmt.Fprintf(os.Stderr, "keys and value-size must be positive\n")
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	logger := log.NewStandardLogger(log.WithLevel(log.LevelWarn), log.WithOutput(os.Stderr))

	// Telemetry is configured from BLOCKSTORE_TELEMETRY_* only
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceName = "blockstore-bench"
	tcfg.LoadFromEnv()
	tel, err := telemetry.New(tcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}()

	p := benchParams{
		numKeys:   *numKeys,
		valueSize: *valueSize,
		duration:  *duration,
		seed:      *seed,
	}

	// Each benchmark gets a fresh store so arena numbers are its own
	newStore := func() *blockstore.Store {
		s, err := blockstore.New(*blockSize,
			blockstore.WithLogger(logger),
			blockstore.WithMetrics(blockstore.NewStoreMetrics(tel)),
			blockstore.WithReclaimOnOverwrite(*reclaim),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create block store: %v\n", err)
			os.Exit(1)
		}
		return s
	}

	fmt.Printf("Benchmark Report (%s)\n", time.Now().Format(time.RFC3339))
	fmt.Printf("Keys: %d, Value Size: %d bytes, Block Size: %d bytes, Duration: %s, Reclaim: %v\n",
		*numKeys, *valueSize, *blockSize, *duration, *reclaim)

	var results []BenchmarkResult
	for _, typ := range strings.Split(*benchmarkType, ",") {
		switch strings.ToLower(strings.TrimSpace(typ)) {
		case "insert":
			fmt.Println("Running Insert Benchmark...")
			results = append(results, runInsertBenchmark(newStore(), p))
		case "get":
			fmt.Println("Running Get Benchmark...")
			results = append(results, runGetBenchmark(newStore(), p))
		case "churn":
			fmt.Println("Running Churn Benchmark...")
			results = append(results, runChurnBenchmark(newStore(), p))
		case "all":
			fmt.Println("Running Insert, Get and Churn Benchmarks...")
			results = append(results,
				runInsertBenchmark(newStore(), p),
				runGetBenchmark(newStore(), p),
				runChurnBenchmark(newStore(), p),
			)
		default:
			fmt.Fprintf(os.Stderr, "Unknown benchmark type: %s\n", typ)
			os.Exit(1)
		}
	}

	PrintResultTable(os.Stdout, results)

	if *resultsFile != "" {
		if err := SaveResultCSV(results, *resultsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results to file: %v\n", err)
		}
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
		} else {
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
			}
		}
	}
}
