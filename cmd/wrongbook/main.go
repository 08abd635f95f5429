// Wrongbook - personal mistake notebook server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/luocen/wrongbook/internal/ai"
	"github.com/luocen/wrongbook/internal/config"
	"github.com/luocen/wrongbook/internal/importer"
	"github.com/luocen/wrongbook/internal/jobs"
	"github.com/luocen/wrongbook/internal/review"
	"github.com/luocen/wrongbook/internal/storage"
	"github.com/luocen/wrongbook/internal/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Review.Location()
	if err != nil {
		slog.Error("Failed to resolve review timezone", "error", err)
		os.Exit(1)
	}
	sched, err := review.New(review.Config{
		Intervals:  cfg.Review.Intervals,
		CutoffHour: cfg.Review.CutoffHour,
		Location:   loc,
		BatchSize:  cfg.Review.BatchSize,
	})
	if err != nil {
		slog.Error("Failed to initialize scheduler", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()
	slog.Info("Database opened", "path", cfg.DB.Path)

	var explainer web.Explainer
	if cfg.AI.TextBaseURL != "" {
		client, err := ai.New(ai.Config{
			TextBaseURL:   cfg.AI.TextBaseURL,
			TextAPIKey:    cfg.AI.TextAPIKey,
			TextModel:     cfg.AI.TextModel,
			VisionBaseURL: cfg.AI.VisionBaseURL,
			VisionAPIKey:  cfg.AI.VisionAPIKey,
			VisionModel:   cfg.AI.VisionModel,
		})
		if err != nil {
			slog.Error("Failed to initialize explanation client", "error", err)
			os.Exit(1)
		}
		explainer = client
	} else {
		slog.Warn("No explanation backend configured, AI endpoints disabled")
	}

	imp := importer.New(db, cfg.Import.ReposDir)
	server := web.NewServer(db, sched, explainer, imp, cfg.Server.CORSOrigin)

	if cfg.Digest.Enabled {
		digest := jobs.NewDigest(db, sched.Cutoff())
		digest.Start()
		defer digest.Stop()
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
