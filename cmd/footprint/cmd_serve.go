package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/config"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/dataset"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/eventbus"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/server"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/session"
)

var dataFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and websocket",
	Long: `Loads the dataset once, then serves:
  GET /healthz
  GET /api/regions, /api/malls, /api/malls/{id}, /api/stores/{id}
  GET /api/dashboard/ws   (websocket, one filter session per connection)`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&dataFile, "data", "", "JSON dataset file (overrides the database)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded",
		zap.Int("stores", len(data.Stores())),
		zap.Int("malls", len(data.Malls())))

	bus := eventbus.New(256, logger.Named("eventbus"))
	stats := eventbus.NewStats()
	bus.Subscribe("log", eventbus.NewLogConsumer(logger.Named("events")))
	bus.Subscribe("stats", stats)

	sessions := session.NewManager(data, session.Options{
		MaxAge:      cfg.SessionMaxAge(),
		IdleTimeout: cfg.SessionIdle(),
		SearchDelay: cfg.SearchDebounce(),
		Logger:      logger.Named("session"),
		Events:      bus,
	})
	return server.Run(ctx, server.Config{
		Port:           cfg.Port,
		Sessions:       sessions,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.Named("server"),
		Events:         bus,
		Stats:          stats,
	})
}

// loadConfig reads --config and the environment, applying the configured
// log level unless --verbose already asked for debug.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dataFile != "" {
		cfg.DataFile = dataFile
	}
	if !verbose {
		if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			level.SetLevel(lvl)
		}
	}
	return cfg, nil
}

// loadDataset reads the JSON file when one is configured, the database otherwise.
func loadDataset(ctx context.Context, cfg config.Config) (*dataset.Dataset, error) {
	if cfg.DataFile != "" {
		return dataset.FileProvider{Path: cfg.DataFile}.Load(ctx)
	}
	db, err := dataset.Open(ctx, cfg.DatabaseURL, logger.Named("dataset"))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	data, err := db.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return data, nil
}
