package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/halftime/internal/api/rest"
	"github.com/fortuna/halftime/internal/api/websocket"
	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/config"
	"github.com/fortuna/halftime/internal/ensemble"
	"github.com/fortuna/halftime/internal/ingest/espn"
	"github.com/fortuna/halftime/internal/logging"
	"github.com/fortuna/halftime/internal/model"
	"github.com/fortuna/halftime/internal/publisher"
	"github.com/fortuna/halftime/internal/scheduler"
	"github.com/fortuna/halftime/internal/service"
)

const (
	serviceName    = "halftime"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	logger.Infow("starting", "service", serviceName, "version", serviceVersion, "variant", cfg.Variant)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := model.LoadRegistry(ctx, model.Paths{
		Mean: cfg.ModelMeanPath,
		Low:  cfg.ModelLowPath,
		High: cfg.ModelHighPath,
	})
	if err != nil {
		logger.Fatalw("failed to load models", "error", err)
	}
	logger.Infow("models loaded", "registry", registry.String(), "features", len(registry.Mean().FeatureNames()))

	source, err := baseline.Open(ctx, cfg.BaselineCSV, cfg.BaselineDSN, cfg.BaselineTable)
	if err != nil {
		logger.Fatalw("failed to open baseline source", "error", err)
	}
	defer source.Close()

	feed := espn.New(espn.Options{
		BaseURL:   cfg.ESPNAPIBase,
		UserAgent: cfg.FeedUserAgent,
		Timeout:   cfg.FeedTimeout,
		Logger:    logger.Named("espn"),
	})

	wsServer := websocket.NewServer(cfg.AllowedOrigins, logger.Named("websocket"))

	opts := service.Options{
		Feed:        feed,
		Baseline:    source,
		Scorer:      ensemble.NewPredictor(registry),
		Variant:     cfg.Variant,
		Broadcaster: wsServer,
		Location:    cfg.Location,
		Logger:      logger.Named("service"),
	}

	// The snapshot stream is optional; the service runs without Redis.
	if cfg.RedisURL != "" {
		redisClient, err := publisher.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warnw("redis unavailable, live snapshots disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts.Publisher = publisher.NewRedisStreamPublisher(redisClient)
			logger.Infow("publishing live snapshots", "stream", publisher.LiveStream)
		}
	}

	predictions := service.NewPredictionService(opts)

	var poller *scheduler.Poller
	if opts.Publisher != nil && cfg.SnapshotPollInterval > 0 {
		pollCfg := scheduler.DefaultConfig()
		pollCfg.Interval = cfg.SnapshotPollInterval
		poller = scheduler.NewPoller(func(ctx context.Context) error {
			_, err := predictions.LiveTeams(ctx, time.Time{})
			return err
		}, pollCfg, logger.Named("scheduler"))
		poller.Start(ctx)
	}

	restServer := rest.NewServer(cfg.Port, predictions, cfg.AllowedOrigins, logger.Named("rest"))
	if poller != nil {
		restServer.ReportStatus("snapshot_poller", poller)
	}
	go func() {
		logger.Infow("REST API server listening", "port", cfg.Port)
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("REST server error", "error", err)
		}
	}()

	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("WebSocket server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down gracefully")
	if poller != nil {
		poller.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("REST API server shutdown error", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("WebSocket server shutdown error", "error", err)
	}

	logger.Info("stopped")
}
