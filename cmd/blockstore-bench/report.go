package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult stores the results of a benchmark
type BenchmarkResult struct {
	BenchmarkType  string
	NumKeys        int
	ValueSize      int
	BlockSize      int
	Operations     int
	Duration       float64
	Throughput     float64
	Latency        float64 // µs per operation
	HitRate        float64 // For get benchmarks
	ArenaBytes     int
	ReuseRatio     float64 // reused / placed blocks
	OrphanedBlocks int
	Timestamp      time.Time
}

var csvHeader = []string{
	"Timestamp", "BenchmarkType", "NumKeys", "ValueSize", "BlockSize",
	"Operations", "Duration", "Throughput", "Latency", "HitRate",
	"ArenaBytes", "ReuseRatio", "OrphanedBlocks",
}

// SaveResultCSV saves benchmark results to a CSV file
func SaveResultCSV(results []BenchmarkResult, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			r.BenchmarkType,
			strconv.Itoa(r.NumKeys),
			strconv.Itoa(r.ValueSize),
			strconv.Itoa(r.BlockSize),
			strconv.Itoa(r.Operations),
			fmt.Sprintf("%.2f", r.Duration),
			fmt.Sprintf("%.2f", r.Throughput),
			fmt.Sprintf("%.3f", r.Latency),
			fmt.Sprintf("%.2f", r.HitRate),
			strconv.Itoa(r.ArenaBytes),
			fmt.Sprintf("%.4f", r.ReuseRatio),
			strconv.Itoa(r.OrphanedBlocks),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadResultCSV loads benchmark results from a CSV file
func LoadResultCSV(filename string) ([]BenchmarkResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	// Skip header
	if len(records) <= 1 {
		return []BenchmarkResult{}, nil
	}
	records = records[1:]

	results := make([]BenchmarkResult, 0, len(records))
	for _, record := range records {
		if len(record) < len(csvHeader) {
			continue
		}

		timestamp, _ := time.Parse(time.RFC3339, record[0])
		numKeys, _ := strconv.Atoi(record[2])
		valueSize, _ := strconv.Atoi(record[3])
		blockSize, _ := strconv.Atoi(record[4])
		operations, _ := strconv.Atoi(record[5])
		duration, _ := strconv.ParseFloat(record[6], 64)
		throughput, _ := strconv.ParseFloat(record[7], 64)
		latency, _ := strconv.ParseFloat(record[8], 64)
		hitRate, _ := strconv.ParseFloat(record[9], 64)
		arenaBytes, _ := strconv.Atoi(record[10])
		reuseRatio, _ := strconv.ParseFloat(record[11], 64)
		orphaned, _ := strconv.Atoi(record[12])

		results = append(results, BenchmarkResult{
			Timestamp:      timestamp,
			BenchmarkType:  record[1],
			NumKeys:        numKeys,
			ValueSize:      valueSize,
			BlockSize:      blockSize,
			Operations:     operations,
			Duration:       duration,
			Throughput:     throughput,
			Latency:        latency,
			HitRate:        hitRate,
			ArenaBytes:     arenaBytes,
			ReuseRatio:     reuseRatio,
			OrphanedBlocks: orphaned,
		})
	}

	return results, nil
}

// PrintResultTable prints a formatted table of benchmark results
func PrintResultTable(w io.Writer, results []BenchmarkResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results to display")
		return
	}

	fmt.Fprintln(w, "+-----------+--------+---------+-------+------------+-----------+----------+--------------+--------+")
	fmt.Fprintln(w, "| Benchmark | Keys   | ValSize | Block | Throughput | Latency   | Hit Rate | Arena        | Reuse  |")
	fmt.Fprintln(w, "+-----------+--------+---------+-------+------------+-----------+----------+--------------+--------+")

	for _, r := range results {
		hitRateStr := "-"
		if r.BenchmarkType == "Get" {
			hitRateStr = fmt.Sprintf("%.2f%%", r.HitRate)
		}

		latencyUnit := "µs"
		latency := r.Latency
		if latency > 1000 {
			latencyUnit = "ms"
			latency /= 1000
		}

		fmt.Fprintf(w, "| %-9s | %6d | %7d | %5d | %10.2f | %7.2f%s | %8s | %12d | %5.1f%% |\n",
			r.BenchmarkType,
			r.NumKeys,
			r.ValueSize,
			r.BlockSize,
			r.Throughput,
			latency, latencyUnit,
			hitRateStr,
			r.ArenaBytes,
			r.ReuseRatio*100)
	}
	fmt.Fprintln(w, "+-----------+--------+---------+-------+------------+-----------+----------+--------------+--------+")
}
