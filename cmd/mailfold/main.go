package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailfold/mailfold/internal/aggregate"
	"github.com/mailfold/mailfold/internal/auth"
	"github.com/mailfold/mailfold/internal/config"
	"github.com/mailfold/mailfold/internal/google"
	"github.com/mailfold/mailfold/internal/graph"
	"github.com/mailfold/mailfold/internal/httpapi"
	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/rate"
	"github.com/mailfold/mailfold/internal/rules"
)

type serverConfig struct {
	addr   string
	dbPath string
	env    config.Config
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		defaultLogger().Error("mailfold failed to start", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		defaultLogger().Error("mailfold failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (serverConfig, error) {
	env, err := config.Load()
	if err != nil {
		return serverConfig{}, fmt.Errorf("load config: %w", err)
	}

	addr := flag.String("addr", env.Addr, "HTTP listen address")
	dbPath := flag.String("db", env.DBPath, "path to the automation record database")
	flag.Parse()

	return serverConfig{addr: *addr, dbPath: *dbPath, env: env}, nil
}

func run(cfg serverConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := defaultLogger()
	slog.SetDefault(log)

	keys, err := auth.ParseKeys(cfg.env.APIKeys)
	if err != nil {
		return fmt.Errorf("parse api keys: %w", err)
	}
	if keys.Len() == 0 {
		return errors.New("no api keys configured, set MAILFOLD_API_KEYS")
	}

	store, err := rules.NewSQLiteStore(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()

	bucket := rate.NewTokenBucket(cfg.env.ProviderRPS)
	defer bucket.Stop()

	boxes, err := buildMailboxes(ctx, cfg.env, bucket)
	if err != nil {
		return err
	}
	if len(boxes) == 0 {
		return errors.New("no mail provider configured, set MAILFOLD_GOOGLE_CONFIG_DIR or MAILFOLD_GRAPH_TOKEN")
	}

	svc := aggregate.New(store, log, cfg.env.RequestTimeout)
	server := httpapi.NewServer(svc, boxes, keys, log)

	httpSrv := &http.Server{
		Addr:              cfg.addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("mailfold listening", "addr", cfg.addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("mailfold stopped")
	return nil
}

func buildMailboxes(ctx context.Context, env config.Config, limiter rate.Limiter) (map[provider.Kind]provider.Mailbox, error) {
	boxes := map[provider.Kind]provider.Mailbox{}

	if env.GoogleConfigDir != "" {
		svc, err := google.NewService(ctx, env.GoogleConfigDir)
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}
		boxes[provider.KindGoogle] = google.NewClient(svc, limiter, env.MaxConcurrentLoads)
	}

	if env.GraphToken != "" {
		boxes[provider.KindGraph] = graph.NewClientWithToken(
			ctx, env.GraphToken, env.GraphBaseURL, limiter, env.MaxConcurrentLoads)
	}

	return boxes, nil
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
