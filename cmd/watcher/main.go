package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/ledgerwatch/internal/api"
	"github.com/rickgao/ledgerwatch/internal/auth"
	"github.com/rickgao/ledgerwatch/internal/config"
	"github.com/rickgao/ledgerwatch/internal/database"
	"github.com/rickgao/ledgerwatch/internal/model"
	"github.com/rickgao/ledgerwatch/internal/poller"
	"github.com/rickgao/ledgerwatch/internal/version"
	"github.com/rickgao/ledgerwatch/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/watcher.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting watcher",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"filters", len(cfg.Filters),
	)

	// Shut down on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create API client
	clientOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	}
	if cfg.API.PrivateKeyPath != "" {
		creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.PrivateKeyPath)
		if err != nil {
			logger.Error("failed to load signing credentials", "error", err)
			os.Exit(1)
		}
		clientOpts = append(clientOpts, api.WithCredentials(creds))
		logger.Info("request signing enabled", "key_id", cfg.API.APIKey)
	}
	client := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey, clientOpts...)

	// Delivery handler: Postgres archive when enabled, otherwise log.
	var handler poller.BatchHandler
	var eventWriter *writer.EventWriter
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Archive.Database.Host,
			"database", cfg.Archive.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		eventWriter = writer.NewEventWriter(writer.Config{
			BatchSize:     cfg.Archive.Writer.BatchSize,
			FlushInterval: cfg.Archive.Writer.FlushInterval,
			BufferSize:    cfg.Archive.Writer.BufferSize,
		}, pool, logger)
		if err := eventWriter.Start(ctx); err != nil {
			logger.Error("failed to start event writer", "error", err)
			os.Exit(1)
		}
		handler = eventWriter
	} else {
		handler = poller.BatchHandlerFunc(func(events []model.Event) {
			logger.Info("new events", "count", len(events))
		})
	}

	errHandler := poller.ErrorHandlerFunc(func(err error) {
		logger.Error("poll error", "error", err)
	})

	p, err := poller.New(poller.Config{
		Interval:        cfg.Poller.Interval,
		Timeout:         cfg.Poller.QueryTimeout,
		MemoryWindow:    cfg.Poller.MemoryWindow,
		MaxStoredEvents: cfg.Poller.MaxStoredEvents,
		ReplayHistory:   cfg.Poller.ReplayHistory,
	}, client, cfg.Filters, handler, errHandler, logger)
	if err != nil {
		logger.Error("failed to create poller", "error", err)
		os.Exit(1)
	}

	p.Start(ctx)

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(p, eventWriter),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("watcher running",
		"instance_id", cfg.Instance.ID,
		"status_url", fmt.Sprintf("http://localhost:%d/status", cfg.Health.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("health server error", "error", err)
	}

	logger.Info("shutting down...")

	p.Stop()

	if eventWriter != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		eventWriter.Stop(shutdownCtx)
	}

	logger.Info("watcher stopped")
}

// createHealthHandler creates the HTTP handler for health and status checks.
func createHealthHandler(p *poller.Poller, w *writer.EventWriter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		st := p.Status()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if !st.IsPolling {
			health.Status = "degraded"
		}
		health.Components["poller"] = map[string]any{
			"polling": st.IsPolling,
			"filters": len(st.Filters),
		}
		if w != nil {
			stats := w.Stats()
			health.Components["archive"] = map[string]any{
				"inserts": stats.Inserts,
				"errors":  stats.Errors,
			}
			if stats.Errors > 0 {
				health.Status = "degraded"
			}
		}

		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(health)
	})

	mux.HandleFunc("/status", func(rw http.ResponseWriter, r *http.Request) {
		st := p.Status()

		resp := struct {
			IsPolling   bool           `json:"isPolling"`
			Filters     []model.Filter `json:"filters"`
			Interval    int64          `json:"interval"`
			StartTime   int64          `json:"startTime"`
			MemoryUsage string         `json:"memoryUsage"`
		}{
			IsPolling:   st.IsPolling,
			Filters:     st.Filters,
			Interval:    st.Interval.Milliseconds(),
			StartTime:   st.StartTimeMs,
			MemoryUsage: st.MemoryUsage,
		}

		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(resp)
	})

	return mux
}
