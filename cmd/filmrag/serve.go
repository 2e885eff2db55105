package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/dictionary"
	"github.com/kailas-cloud/filmrag/internal/metrics"
	"github.com/kailas-cloud/filmrag/internal/scheduler"
	chiTransport "github.com/kailas-cloud/filmrag/internal/transport/chi"
	gen "github.com/kailas-cloud/filmrag/internal/transport/generated"
	"github.com/kailas-cloud/filmrag/internal/version"
)

const rerankCheckSpec = "@every 1m"

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting filmrag",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.env),
		zap.String("dense_driver", cfg.Dense.Driver),
	)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Serve from whatever snapshot a background build produces; until then
	// search falls back to the dense path or empty results.
	a.sync.RefreshIfStale(ctx)

	if a.enhancer != nil && cfg.Enhance.DictionaryFile != "" {
		w, err := dictionary.NewWatcher(cfg.Enhance.DictionaryFile, a.enhancer.SetDictionary, logger.Named("dictionary"))
		if err != nil {
			logger.Warn("Dictionary hot reload disabled", zap.Error(err))
		} else {
			defer func() { _ = w.Close() }()
			go w.Run(ctx)
		}
	}

	var rateLimit func(http.Handler) http.Handler
	if rl := cfg.HTTP.RateLimit; rl.On() {
		rateLimit, err = chiTransport.RateLimitMiddleware(chiTransport.RateLimit{
			RequestsPerMinute: rl.RequestsPerMinute,
			Burst:             rl.Burst,
			MaxClients:        rl.MaxClients,
		})
		if err != nil {
			return err
		}
	}

	sched := scheduler.New(logger.Named("scheduler"))
	if cfg.Sync.Schedule != "" {
		timeout := time.Duration(cfg.Sync.TimeoutSec) * time.Second
		if err := sched.Add("index-sync", cfg.Sync.Schedule, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			_, err := a.sync.Rebuild(ctx)
			return err
		}); err != nil {
			return fmt.Errorf("schedule index sync: %w", err)
		}
	}
	if a.reranker != nil {
		if err := sched.Add("rerank-check", rerankCheckSpec, func(ctx context.Context) error {
			if a.reranker.Ready() {
				return nil
			}
			return a.reranker.Load(ctx)
		}); err != nil {
			return fmt.Errorf("schedule rerank check: %w", err)
		}
	}
	sched.Start()

	var cacheAdmin chiTransport.CacheAdmin
	if a.cache != nil {
		cacheAdmin = a.cache
	}
	server := chiTransport.NewServer(a.search, a.sync, a.films, cacheAdmin, a.health, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	if cfg.HTTP.RateLimit.TrustForwardedFor {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	if rateLimit != nil {
		r.Use(rateLimit)
	}
	gen.HandlerWithOptions(server, gen.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: chiTransport.ParamErrorHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)

	logger.Info("Server stopped gracefully")
	return nil
}
