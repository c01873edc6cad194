// Command stakeview serves the validator rewards dashboard.
// It can be configured via a YAML configuration file or command-line arguments.
//
// Usage:
//
//	stakeview --config config.yaml
//	stakeview --upstream https://host/api/validator-rewards (uses CLI arguments)
//
// Optional environment variables:
//
//	UPSTREAM_API_KEY overrides the upstream API key from the config file
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/stakeview/config"
	"github.com/vadiminshakov/stakeview/internal/export"
	"github.com/vadiminshakov/stakeview/internal/storage/exports"
	"github.com/vadiminshakov/stakeview/internal/tracing"
	"github.com/vadiminshakov/stakeview/internal/upstream"
	"github.com/vadiminshakov/stakeview/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "stakeview", cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", zap.Error(err))
		}
	}()

	store, err := exports.NewWALStore(cfg.ExportWALDir)
	if err != nil {
		logger.Fatal("failed to open export log", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close export log", zap.Error(err))
		}
	}()

	client, err := upstream.NewClient(cfg.Upstream.URL, cfg.Upstream.APIKey, cfg.Upstream.Timeout, logger,
		upstream.WithRateLimit(cfg.Upstream.RateLimit, cfg.Upstream.Burst))
	if err != nil {
		logger.Fatal("failed to create upstream client", zap.Error(err))
	}

	form := export.HubSpotForm{PortalID: cfg.Form.PortalID, FormID: cfg.Form.FormID}
	server, err := web.NewServer(cfg.ListenAddr, client, store, form, cfg.PageSize, cfg.MaxViews, cfg.ExampleAddresses, logger)
	if err != nil {
		logger.Fatal("failed to create web server", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(cfg.TLS.Domains) > 0 {
			return server.StartWithAutoTLS(gctx, cfg.TLS.Domains, cfg.TLS.CacheDir)
		}
		return server.Start(gctx)
	})
	logger.Info("started",
		zap.String("addr", cfg.ListenAddr),
		zap.String("upstream", cfg.Upstream.URL),
		zap.Int("page_size", cfg.PageSize))

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
