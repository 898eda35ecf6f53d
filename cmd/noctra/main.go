// Package main runs the Noctra HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Riddimental/Backend-Noctra/internal/di"
	"github.com/Riddimental/Backend-Noctra/pkg/config"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = cfg.App.Name
	logCfg.Development = !cfg.IsProduction()
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if cfg.OTel.Enabled {
		logCfg.OTLPEndpoint = cfg.OTel.CollectorAddr
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	_ = logger.Sync()
	_ = logger.Get().Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := telemetry.Init(ctx, telemetry.FromAppConfig(cfg.App, cfg.OTel)); err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	container, err := di.NewContainer(ctx, &di.ContainerConfig{Config: cfg, Metrics: metrics})
	if err != nil {
		return err
	}
	defer container.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      container.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
