package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/service-calculator/internal/application"
	"github.com/eugenenazirov/service-calculator/internal/config"
	"github.com/eugenenazirov/service-calculator/internal/logging"
)

var signalNotify = signal.Notify

// service is the part of the application the shutdown sequence drives.
type service interface {
	Server() *http.Server
	Close() error
}

func main() {
	kingpinApp := kingpin.New("service-calculator", "Service Calculator - finds service quantities whose total matches a target amount")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file (default: ./.env when present)").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	catalogDriver := kingpinApp.Flag("catalog-driver", "Catalog persistence: memory, json or sqlite").String()
	catalogPath := kingpinApp.Flag("catalog-path", "Catalog file (json) or database (sqlite) path").String()
	redisAddr := kingpinApp.Flag("redis-addr", "Redis address for the result cache (empty disables caching)").String()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn, error").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:    *configFile,
		EnvFile:       *envFile,
		Port:          port,
		CatalogDriver: catalogDriver,
		CatalogPath:   catalogPath,
		RedisAddr:     redisAddr,
		LogLevel:      logLevel,
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app, cfg.ShutdownGracePeriod, logger)
}

// shutdown waits for a termination signal, drains the HTTP server and then
// releases the catalog database and cache connections.
func shutdown(svc service, timeout time.Duration, logger *zap.Logger) {
	server := svc.Server()

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}

	if err := svc.Close(); err != nil {
		logger.Warn("failed to release resources", zap.Error(err))
		return
	}
	logger.Info("resources released")
}
