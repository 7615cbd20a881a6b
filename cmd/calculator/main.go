package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/service-calculator/internal/application"
	"github.com/eugenenazirov/service-calculator/internal/config"
	"github.com/eugenenazirov/service-calculator/internal/logging"
	"github.com/eugenenazirov/service-calculator/internal/prompt"
	"github.com/eugenenazirov/service-calculator/internal/solver"
	"github.com/eugenenazirov/service-calculator/internal/textinput"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	kingpinApp := kingpin.New("calculator", "Interactive service calculator - type a target amount, get the service quantities")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file (default: ./.env when present)").String()
	catalogDriver := kingpinApp.Flag("catalog-driver", "Catalog persistence: memory, json or sqlite").String()
	catalogPath := kingpinApp.Flag("catalog-path", "Catalog file (json) or database (sqlite) path").String()
	redisAddr := kingpinApp.Flag("redis-addr", "Redis address for the result cache (empty disables caching)").String()
	logLevel := kingpinApp.Flag("log-level", "Log level: debug, info, warn, error").Default("warn").String()
	mode := kingpinApp.Flag("mode", "Calculation mode: allocate or reduce").Default("allocate").Enum("allocate", "reduce")
	strategy := kingpinApp.Flag("strategy", "Strategy: auto, exact or greedy").Default("auto").Enum("auto", "exact", "greedy")
	quantities := kingpinApp.Flag("quantities", "Current quantities, comma separated in catalog order").String()
	floor := kingpinApp.Flag("floor", "Keep current quantities as a minimum in allocate mode (on|off)").Enum("on", "off")
	target := kingpinApp.Flag("target", "Calculate once for this target and exit").String()

	if _, err := kingpinApp.Parse(args); err != nil {
		return err
	}

	overrides := &config.CLIOverrides{
		ConfigFile:    *configFile,
		EnvFile:       *envFile,
		CatalogDriver: catalogDriver,
		CatalogPath:   catalogPath,
		RedisAddr:     redisAddr,
		LogLevel:      logLevel,
	}
	if *floor != "" {
		enabled := *floor == "on"
		overrides.FloorAtCurrent = &enabled
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	core, err := application.NewCore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize calculator: %w", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	parsedMode, err := solver.ParseMode(*mode)
	if err != nil {
		return err
	}

	opts := []prompt.Option{
		prompt.WithLogger(logger),
		prompt.WithMode(parsedMode),
		prompt.WithStrategy(*strategy),
		prompt.WithTolerance(cfg.Tolerance),
	}
	if *quantities != "" {
		opts = append(opts, prompt.WithQuantities(textinput.ParseQuantityList(*quantities)))
	}
	session := prompt.NewSession(core.Planner, core.Store, opts...)

	if *target != "" {
		return session.Evaluate(ctx, *target, out)
	}
	return session.Run(ctx, in, out)
}
