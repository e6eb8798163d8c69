package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/wheelbet/internal/api"
	"github.com/ayo6706/wheelbet/internal/api/middleware"
	"github.com/ayo6706/wheelbet/internal/config"
	"github.com/ayo6706/wheelbet/internal/db"
	"github.com/ayo6706/wheelbet/internal/gateway"
	"github.com/ayo6706/wheelbet/internal/idempotency"
	"github.com/ayo6706/wheelbet/internal/ledger"
	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/ayo6706/wheelbet/internal/observability"
	"github.com/ayo6706/wheelbet/internal/repository"
	"github.com/ayo6706/wheelbet/internal/repository/sqlite"
	"github.com/ayo6706/wheelbet/internal/service"
	"github.com/ayo6706/wheelbet/internal/wheel"
	"github.com/ayo6706/wheelbet/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run bootstraps the HTTP server and background jobs, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("ledger ready", zap.String("driver", cfg.LedgerDriver))

	var redisClient *redis.Client
	var rdb redis.Cmdable
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		rdb = redisClient
	}

	hub := notify.NewHub(originChecker(cfg.CORSAllowedOrigins))
	notifier := notify.Multi{hub}
	if redisClient != nil {
		// Every replica relays the shared channel into its own hub, so the
		// local hub is reached through Redis rather than directly.
		notify.StartRedisSubscriber(ctx, redisClient, cfg.LiveFeedChannel, hub)
		notifier = notify.Multi{notify.NewRedisPublisher(redisClient, cfg.LiveFeedChannel)}
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kafkaPub := notify.NewKafkaPublisher(notify.NewKafkaWriter(brokers, cfg.KafkaTopic))
		defer kafkaPub.Close()
		bus := notify.NewBus(256)
		notify.Relay(ctx, bus, kafkaPub)
		notifier = append(notifier, bus)
		logger.Info("kafka publisher enabled", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	limits := service.Limits{
		MinStake:      cfg.MinStake,
		MaxStake:      cfg.MaxStake,
		MinDeposit:    cfg.MinDeposit,
		MinWithdrawal: cfg.MinWithdrawal,
	}
	gw := gateway.NewSandbox(cfg.GatewayFailureRate)
	funds := service.NewFundsService(store, gw, notifier, limits, cfg.GatewayTimeout)
	reconciliation := service.NewReconciliationService(store)
	services := api.Services{
		Accounts:       service.NewAccountService(store),
		Settlement:     service.NewSettlementService(store, wheel.CryptoDrawer{}, notifier, limits),
		Funds:          funds,
		Destinations:   service.NewDestinationService(store, gw),
		Reconciliation: reconciliation,
		Webhooks:       service.NewWebhookService(funds, cfg.WebhookHMACKey, cfg.WebhookSkipSignature),
	}

	scheduler := worker.NewScheduler(10 * time.Minute)
	if err := scheduler.Add(ctx, cfg.ReconciliationSchedule, worker.NewReconciliationWorker(reconciliation)); err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}
	sweep := worker.NewDepositSweepWorker(funds).WithAge(cfg.DepositSweepAge)
	if err := scheduler.Add(ctx, cfg.DepositSweepSchedule, sweep); err != nil {
		return fmt.Errorf("schedule deposit sweep: %w", err)
	}
	scheduler.Start()
	logger.Info("scheduler started",
		zap.String("reconciliation", cfg.ReconciliationSchedule),
		zap.String("deposit_sweep", cfg.DepositSweepSchedule))

	idemStore := idempotency.NewStore(rdb, store.Queries(), cfg.IdempotencyTTL)
	auth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	router := api.NewRouter(api.Options{
		PublicRateLimitRPS: cfg.PublicRateLimitRPS,
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger, store, rdb, idemStore, auth, hub, services)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("stopping scheduler")
	scheduler.Stop()
	cancel()

	logger.Info("shutdown complete")
	return nil
}

// openLedger connects the configured ledger backend and applies its schema.
func openLedger(ctx context.Context, cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.LedgerDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		pool, err := db.Connect(ctx, db.Options{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewStore(pool), pool.Close, nil
	}
}

func newLogger(level, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.InitialFields = map[string]any{"service": "wheelbet", "env": env}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// originChecker mirrors the CORS allow list for websocket upgrades.
func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
