package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mouldworks/mouldlens/internal/config"
	"github.com/mouldworks/mouldlens/internal/extraction"
	"github.com/mouldworks/mouldlens/internal/gate"
	"github.com/mouldworks/mouldlens/internal/logging"
	"github.com/mouldworks/mouldlens/internal/pipeline"
	"github.com/mouldworks/mouldlens/internal/server"
	"github.com/mouldworks/mouldlens/internal/store"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mouldlens",
	Short: "mouldLens - handwritten casting identifier telemetry",
	Long: `mouldLens ingests photos of sand-casting moulds, reads the handwritten
cope and drag identifiers with a vision model, and records every attempt
so the foundry dashboard can track throughput and recognition quality.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion and dashboard HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A dead database degrades the service instead of killing it: uploads
	// still classify, persistence and queries report unavailability.
	var readingStore *store.Store
	if s, err := store.New(cfg.DatabasePath, cfg.DefaultCameraID, logger); err != nil {
		logger.Error("database unavailable, running degraded", zap.Error(err))
	} else {
		readingStore = s
		defer readingStore.Close()
	}

	extractor, err := extraction.NewClient(ctx, cfg.Extraction, logger)
	if err != nil {
		return fmt.Errorf("failed to build extraction client: %w", err)
	}

	timeout := time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second
	processor := pipeline.NewProcessor(gate.Assess, extractor, storeOrNil(readingStore),
		cfg.DefaultCameraID, timeout, logger)

	handler := server.NewHandler(processor, telemetryOrNil(readingStore), logger)
	srv := server.New(cfg.Addr, handler.Routes(), logger)

	logger.Info("starting mouldlens",
		zap.String("addr", cfg.Addr),
		zap.String("db", cfg.DatabasePath),
		zap.String("model", cfg.Extraction.Model),
		zap.String("binding", cfg.Extraction.Binding))

	return srv.Run(ctx)
}

// storeOrNil keeps the nil check on the concrete type so a nil *store.Store
// does not become a non-nil interface value.
func storeOrNil(s *store.Store) pipeline.RecordStore {
	if s == nil {
		return nil
	}
	return s
}

func telemetryOrNil(s *store.Store) server.TelemetryStore {
	if s == nil {
		return nil
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mouldlens.yaml", "Path to config file")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
