package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/polaritylab/sentiment-service/internal/config"
	"github.com/polaritylab/sentiment-service/internal/engine"
	"github.com/polaritylab/sentiment-service/internal/lifecycle"
	"github.com/polaritylab/sentiment-service/internal/repository"
	"github.com/polaritylab/sentiment-service/internal/services"
	"github.com/polaritylab/sentiment-service/internal/store"
	"github.com/polaritylab/sentiment-service/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize database
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Log startup event
	db.Event("info", "startup", "Server starting", map[string]interface{}{
		"model_name": cfg.ModelName,
		"http_addr":  cfg.HTTPAddr,
		"db_path":    cfg.DBPath,
	})

	// Initialize repository
	repo := repository.NewSQLiteRepository(db)

	// Model lifecycle: lazy, exactly-once-success loading with retry on
	// failure. The loader records each attempt in the event log.
	models := lifecycle.NewManager(func() (lifecycle.Predictor, error) {
		db.Event("info", "model.loading", "Model loading started", map[string]interface{}{
			"model_dir":  cfg.ModelDir,
			"model_name": cfg.ModelName,
			"max_seq":    cfg.MaxSeqLen,
		})

		eng, err := engine.LoadWithAutoDownload(engine.Config{
			ModelDir:     cfg.ModelDir,
			ModelName:    cfg.ModelName,
			ModelURL:     cfg.ModelURL,
			TokenizerURL: cfg.TokenizerURL,
			MaxSeqLen:    cfg.MaxSeqLen,
			PoolSize:     cfg.PoolSize,
			OrtLibrary:   cfg.OrtLibrary,
		})
		if err != nil {
			db.Event("error", "model.failed", "Model loading failed", map[string]interface{}{
				"model_dir": cfg.ModelDir,
				"error":     err.Error(),
			})
			return nil, err
		}

		db.Event("info", "model.loaded", "Model loaded successfully", map[string]interface{}{
			"model_dir":  cfg.ModelDir,
			"model_name": cfg.ModelName,
		})
		return eng, nil
	})

	// Initialize services
	inferenceService := services.NewInferenceService(models, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warm start: pay the cold-start cost before the first request if we
	// can. A failure here must not stop the process; the load is retried
	// lazily on the first inference request.
	go func() {
		if _, err := models.Get(); err != nil {
			slog.Error("Startup model load failed, will retry on first request", "error", err)
		}
	}()

	// NATS transport is optional; the HTTP endpoints serve without it.
	if cfg.NatsURL != "" {
		natsService, err := services.NewNATSService(cfg, inferenceService)
		if err != nil {
			db.Event("error", "nats.failed", "NATS service initialization failed", map[string]interface{}{
				"nats_url": cfg.NatsURL,
				"error":    err.Error(),
			})
			slog.Error("Failed to create NATS service, continuing with HTTP only", "error", err)
		} else {
			healthService := services.NewHealthService(natsService.GetConnection(), cfg, models)

			go func() {
				if err := natsService.Start(ctx); err != nil {
					db.Event("error", "nats.failed", "NATS service failed", map[string]interface{}{
						"error": err.Error(),
					})
					slog.Error("NATS service failed", "error", err)
				}
			}()

			go func() {
				if err := healthService.Start(ctx); err != nil {
					db.Event("error", "health.failed", "Health service failed", map[string]interface{}{
						"error": err.Error(),
					})
					slog.Error("Health service failed", "error", err)
				}
			}()
		}
	}

	// Start HTTP server
	httpServer := server.NewServer(cfg.HTTPAddr, inferenceService)

	db.Event("info", "server.ready", "Server ready to accept requests", map[string]interface{}{
		"http_addr":  cfg.HTTPAddr,
		"model_name": cfg.ModelName,
	})

	go func() {
		if err := httpServer.Start(ctx); err != nil {
			db.Event("error", "http.failed", "HTTP server failed", map[string]interface{}{
				"error": err.Error(),
			})
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("Shutting down server")
}
