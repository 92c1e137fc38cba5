package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KevoDB/blockstore/pkg/blockstore"
	"github.com/KevoDB/blockstore/pkg/common/log"
	"github.com/KevoDB/blockstore/pkg/config"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

// Options holds the command line configuration
type Options struct {
	ConfigPath  string
	BlockSize   int
	MetricsAddr string
}

func main() {
	if err := serve(parseFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// serve runs the shell until it exits and then shuts telemetry down.
func serve(opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if opts.BlockSize > 0 {
		cfg.Update(func(c *config.Config) {
			c.BlockSize = opts.BlockSize
		})
	}

	logger := log.NewStandardLogger(log.WithLevel(cfg.Level()), log.WithOutput(os.Stderr))
	log.SetDefaultLogger(logger)

	registry := prometheus.NewRegistry()
	tel, err := telemetry.New(cfg.Telemetry, telemetry.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Telemetry shutdown failed: %v", err)
		}
	}()

	metrics := blockstore.NewStoreMetrics(tel)
	defer metrics.Close()

	store, err := blockstore.NewFromConfig(cfg,
		blockstore.WithLogger(logger.WithField("component", telemetry.ComponentBlockStore)),
		blockstore.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("creating block store: %w", err)
	}
	locked := blockstore.NewLocked(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := opts.MetricsAddr
	if addr == "" && cfg.Telemetry.Enabled && cfg.Telemetry.HasExporter("prometheus") {
		addr = ":" + strconv.Itoa(cfg.Telemetry.PrometheusPort)
	}
	if addr != "" {
		srv := newMetricsServer(addr, registry, locked)
		go func() {
			logger.Info("Serving metrics on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "blockstore> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".blockstore_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	fmt.Printf("blockstore (block size %d)\n", cfg.BlockSize)
	sh := &shell{
		store:  locked,
		tel:    tel,
		logger: logger.WithField("component", telemetry.ComponentShell),
		out:    os.Stdout,
	}
	sh.run(ctx, rl)
	return nil
}

// parseFlags parses command line flags and returns the Options
func parseFlags() Options {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "blockstore - A fixed-block in-memory keyed store\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: blockstore [options]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment variables prefixed with %s_ override the config file.\n", config.EnvPrefix)
		fmt.Fprintf(flag.CommandLine.Output(), "Start blockstore and type .help for commands.\n")
	}

	configPath := flag.String("config", "", "Path to a JSON, YAML or TOML configuration file")
	blockSize := flag.Int("block-size", 0, "Block size in bytes, overrides the configuration")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve /metrics and /stats on")

	flag.Parse()

	return Options{
		ConfigPath:  *configPath,
		BlockSize:   *blockSize,
		MetricsAddr: *metricsAddr,
	}
}

// newMetricsServer exposes the Prometheus registry and the store statistics.
func newMetricsServer(addr string, registry *prometheus.Registry, store *blockstore.Locked) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(store.Stats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
