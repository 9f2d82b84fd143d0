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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/config"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/lease"
	"github.com/fwextensions/reserve-bed-poc/internal/logging"
	"github.com/fwextensions/reserve-bed-poc/internal/metrics"
	"github.com/fwextensions/reserve-bed-poc/internal/sweeper"
	transporthttp "github.com/fwextensions/reserve-bed-poc/internal/transport/http"
)

const serviceName = "bedhold-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bedhold-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		addr       string
		seed       bool
	)
	flagSet := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flagSet.StringVar(&addr, "addr", "", "listen address, overrides server.addr and PORT")
	flagSet.BoolVar(&seed, "seed", false, "create the sample sites and users when no site exists")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	bootLogger, err := logging.New("info", "json", serviceName)
	if err != nil {
		bootLogger = zap.NewNop()
	}
	config.LoadDotEnv(bootLogger)

	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(rootCtx, 15*time.Second)
	defer cancel()

	backend, err := openStorage(startupCtx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	recorder := metrics.New()
	clk := clock.NewSystem()
	opts := []app.Option{
		app.WithHoldDuration(cfg.Holds.Duration),
		app.WithGraceWindow(cfg.Holds.GraceWindow),
		app.WithRecorder(recorder),
	}
	services := transporthttp.Services{
		Holds:        app.NewHoldService(backend.store, clk, opts...),
		Reservations: app.NewReservationService(backend.store, clk, opts...),
		Sites:        app.NewSiteService(backend.store, clk, opts...),
		Availability: app.NewAvailabilityService(backend.store, clk, opts...),
		Users:        app.NewUserService(backend.store),
	}

	if seed {
		seeded, err := services.Sites.Seed(startupCtx)
		switch {
		case errors.Is(err, domain.ErrAlreadySeeded):
			logger.Info("sites already present, skipping seed")
		case err != nil:
			return fmt.Errorf("seed sample data: %w", err)
		default:
			logger.Info("seeded sample data",
				zap.Int("sites", len(seeded.Sites)),
				zap.Int("users", len(seeded.Users)),
			)
		}
	}

	sweepLease, closeLease, err := newLease(startupCtx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeLease()

	var limiter *transporthttp.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = transporthttp.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		go limiter.RunJanitor(rootCtx, time.Minute)
	}

	sw := sweeper.New(services.Holds, cfg.Holds.SweepInterval,
		sweeper.WithLease(sweepLease),
		sweeper.WithLogger(logger.Named("sweeper")),
		sweeper.WithCounter(recorder),
	)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sw.Run(rootCtx)
	}()

	handler := transporthttp.NewRouter(services, transporthttp.RouterOptions{
		AllowedOrigins: cfg.Server.CORSOrigins,
		Logger:         logger.Named("http"),
		Limiter:        limiter,
		Health:         backend.pinger,
		Metrics:        recorder.Handler(),
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.Duration("hold_duration", cfg.Holds.Duration),
		zap.Duration("grace_window", cfg.Holds.GraceWindow),
		zap.Duration("sweep_interval", cfg.Holds.SweepInterval),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
		stop()
	case <-rootCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	<-sweepDone
	logger.Info("server stopped")
	return nil
}

// newLease returns the shared Redis lease when an address is configured.
func newLease(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (lease.Lease, func(), error) {
	if cfg.Addr == "" {
		return lease.Local{}, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	l := lease.NewRedis(rdb, lease.WithKey(cfg.LeaseKey))
	logger.Info("sweeper lease via redis", zap.String("addr", cfg.Addr), zap.String("token", l.Token()))
	return l, func() { _ = rdb.Close() }, nil
}
