package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptengine/internal/domain/engine"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/config"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/server"
	"github.com/GriffinCanCode/scriptengine/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/scriptengine/internal/sandbox"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML config file (overrides "+config.FileEnv+")")
	port := flag.String("port", "", "Server port (overrides PORT)")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	if *configPath != "" {
		if err := os.Setenv(config.FileEnv, *configPath); err != nil {
			log.Fatalf("Failed to set config path: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
	}

	logger, err := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Development:    cfg.Logging.Development,
		File:           cfg.Logging.File,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxBackups: cfg.Logging.FileMaxBackups,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := sandbox.New(sandbox.Config{
		MaxCallStackSize: cfg.Sandbox.MaxCallStack,
		// The sandbox ceiling backs up the engine timeout.
		Timeout:       2 * cfg.Script.ExecutionTimeout(),
		EnableConsole: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create sandbox runtime: %w", err)
	}

	failures := uint32(cfg.Sandbox.BreakerFailures)
	breaker := resilience.New("sandbox", resilience.Settings{
		Timeout: cfg.Sandbox.BreakerTimeout(),
		ReadyToTrip: func(c resilience.Counts) bool {
			return failures > 0 && c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("script-engine", logger)
	defer tracer.Close()

	svc := engine.NewService(runtime, engine.Config{
		ExecutionTimeout: cfg.Script.ExecutionTimeout(),
		LockCacheSize:    cfg.Script.LockCacheSize,
	}).
		WithLogger(logger).
		WithMetrics(metrics).
		WithTracer(tracer).
		WithBreaker(breaker)

	srv, err := server.NewServer(cfg, logger, server.Deps{
		Executor: svc,
		Readiness: func() error {
			if breaker.State() == resilience.StateOpen {
				return errors.New("sandbox circuit breaker is open")
			}
			return nil
		},
		Metrics: metrics,
		Tracer:  tracer,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
