// Monthly batch loader: extracts the window since the last successful run,
// writes a timestamped artifact, bulk-loads it into Snowflake, and records
// the run. Invocations within the same calendar month exit immediately.
//
// Usage:
//
//	go run cmd/monthly-loader/main.go
//
// Configuration comes from MONTHLOAD_CONFIG (YAML, optional) plus the
// SNOWFLAKE_* / DATA_SAVE_PATH environment variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"monthload/internal/artifact"
	"monthload/internal/config"
	"monthload/internal/extract"
	"monthload/internal/pipeline"
	"monthload/internal/runstate"
	"monthload/internal/util"
	"monthload/internal/warehouse"
)

func main() {
	if err := run(); err != nil {
		slog.Error("monthly load failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/monthload.yaml"
	if p := os.Getenv("MONTHLOAD_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Fail fast on incomplete credentials, before any file or network I/O.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	source, err := newExtractor(cfg)
	if err != nil {
		return err
	}

	writer := newWriter(cfg)
	loader := warehouse.NewSnowflakeLoader(cfg.Credentials())

	p := pipeline.New(store, source, writer, loader,
		cfg.Snowflake.Table, cfg.Load.MaxAttempts, cfg.Load.RetryDelay())

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case pipeline.OutcomeSkipped:
		slog.Info("monthly data load not required yet")
	case pipeline.OutcomeCompletedEmpty:
		slog.Info("monthly run completed with an empty window")
	default:
		slog.Info("monthly data extraction and load completed",
			"artifact", res.ArtifactRef,
			"rows", res.RowsLoaded,
		)
	}
	return nil
}

// newStateStore builds the run-state store selected by configuration and
// returns a close function for backends that hold resources.
func newStateStore(cfg *config.Config) (runstate.Store, func(), error) {
	switch cfg.Storage.StateBackend {
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Storage.DataDir, "monthload.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating state dir: %w", err)
		}
		st, err := runstate.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		path := cfg.Storage.StatePath
		if path == "" {
			path = filepath.Join(cfg.Storage.DataDir, "last_run.json")
		}
		return runstate.NewFileStore(path), func() {}, nil
	}
}

// newExtractor builds the data source selected by configuration.
func newExtractor(cfg *config.Config) (extract.Extractor, error) {
	switch cfg.Extract.Source {
	case "alpaca":
		if cfg.Extract.AlpacaAPIKey == "" || cfg.Extract.AlpacaAPISecret == "" {
			return nil, fmt.Errorf("alpaca source requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		if len(cfg.Extract.Symbols) == 0 {
			return nil, fmt.Errorf("alpaca source requires extract.symbols")
		}
		return extract.NewAlpacaBars(
			cfg.Extract.AlpacaAPIKey, cfg.Extract.AlpacaAPISecret,
			cfg.Extract.Symbols, cfg.Extract.RateLimitPerMin,
		), nil
	case "simulated":
		return extract.NewSimulated(cfg.Extract.RecordCount), nil
	default:
		return nil, fmt.Errorf("unknown extract source %q", cfg.Extract.Source)
	}
}

// newWriter builds the artifact writer selected by configuration.
func newWriter(cfg *config.Config) artifact.Writer {
	if cfg.Artifact.Format == "parquet" {
		return artifact.NewParquetWriter(cfg.Storage.DataDir)
	}
	return artifact.NewCSVWriter(cfg.Storage.DataDir)
}
