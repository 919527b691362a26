package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/simaogato/checkflow-backend/internal/adapter/circuitbreaker"
	grpcadapter "github.com/simaogato/checkflow-backend/internal/adapter/grpc"
	"github.com/simaogato/checkflow-backend/internal/adapter/repository/file"
	"github.com/simaogato/checkflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/checkflow-backend/internal/adapter/repository/postgres"
	redisrepo "github.com/simaogato/checkflow-backend/internal/adapter/repository/redis"
	"github.com/simaogato/checkflow-backend/internal/adapter/telegram"
	"github.com/simaogato/checkflow-backend/internal/config"
	"github.com/simaogato/checkflow-backend/internal/domain"
	"github.com/simaogato/checkflow-backend/internal/logging"
	"github.com/simaogato/checkflow-backend/internal/telemetry"
	"github.com/simaogato/checkflow-backend/internal/usecase/decision"
	"github.com/simaogato/checkflow-backend/internal/usecase/directory"
	"github.com/simaogato/checkflow-backend/internal/usecase/dispatcher"
	"github.com/simaogato/checkflow-backend/internal/usecase/issuance"
	"github.com/simaogato/checkflow-backend/internal/usecase/pending"
	"github.com/simaogato/checkflow-backend/internal/usecase/wizard"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "checkflow",
		Short: "Check issuance and confirmation bot",
		Long: `Runs the chat bot that lets operators issue checks to recipients
and records every confirm/reject decision in the ledger.

Configuration is read from the optional YAML file, then from CHECKFLOW_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	return cmd
}

func run(ctx context.Context, configPath string) error {
	// 1. Configuration and logging
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// 2. Metrics
	meterProvider, shutdownMetrics, err := telemetry.NewMeterProvider(ctx, cfg.Metrics.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Warn("failed to flush metrics", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		return err
	}

	// 3. Storage
	stores := &storage{cfg: cfg}
	defer stores.Close(logger)

	ledger, err := stores.ledger(ctx)
	if err != nil {
		return err
	}
	guardedLedger := circuitbreaker.NewLedger(ledger, circuitbreaker.Config{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
	}, logger)

	directoryRepo, err := stores.directory(ctx)
	if err != nil {
		return err
	}

	// 4. Chat transport
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to the bot api: %w", err)
	}
	logger.Info("authorized on bot account", zap.String("username", bot.Self.UserName))
	messenger := telegram.NewMessenger(bot)

	// 5. Services
	operators := domain.NewOperatorSet(cfg.Operators...)
	registry := pending.NewRegistry()

	directoryService := directory.NewDirectoryService(directoryRepo)
	wizardService := wizard.NewService(directoryService, operators)
	issuanceService := issuance.NewIssuanceService(guardedLedger, registry, messenger, metrics, logger)
	decisionService := decision.NewDecisionService(guardedLedger, registry, messenger, operators, metrics, logger)
	d := dispatcher.NewDispatcher(directoryService, wizardService, issuanceService, decisionService, messenger, operators, logger)

	// 6. Admin gRPC server
	grpcServer, healthServer := grpcadapter.NewGRPCServer(grpcadapter.NewServer(registry, guardedLedger), cfg.Admin.Token)

	lis, err := net.Listen("tcp", cfg.Admin.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Admin.Addr, err)
	}

	go func() {
		logger.Info("admin gRPC server listening", zap.String("addr", cfg.Admin.Addr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			logger.Error("admin gRPC server failed", zap.Error(err))
		}
	}()

	// 7. Poller
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	poller := telegram.NewPoller(bot, d, int(cfg.Telegram.PollTimeout/time.Second), logger)
	pollDone := make(chan error, 1)
	go func() {
		pollDone <- poller.Run(pollCtx)
	}()
	logger.Info("polling for updates", zap.Int("operators", len(cfg.Operators)))

	// Graceful shutdown
	return waitForShutdown(logger, grpcServer, healthServer, stopPolling, pollDone)
}

// waitForShutdown waits for SIGTERM or SIGINT, or for the poller to stop on its own,
// then drains in-flight updates and gracefully stops the admin server
func waitForShutdown(
	logger *zap.Logger,
	grpcServer *grpclib.Server,
	healthServer *health.Server,
	stopPolling context.CancelFunc,
	pollDone <-chan error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	var pollErr error
	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully", zap.String("signal", sig.String()))
		healthServer.Shutdown()
		stopPolling()
		pollErr = <-pollDone
	case pollErr = <-pollDone:
		logger.Warn("update polling stopped, shutting down")
		healthServer.Shutdown()
	}
	logger.Info("update poller stopped")

	grpcServer.GracefulStop()
	logger.Info("admin gRPC server stopped")

	return pollErr
}

// storage opens the configured ledger and directory backends.
// The PostgreSQL connection is shared when both use it.
type storage struct {
	cfg   *config.Config
	db    *postgres.DB
	redis *goredis.Client
}

func (s *storage) openPostgres(ctx context.Context) (*postgres.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	db, err := postgres.NewDB(s.cfg.Ledger.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return db, nil
}

func (s *storage) ledger(ctx context.Context) (domain.LedgerRepository, error) {
	switch s.cfg.Ledger.Backend {
	case "memory":
		return memory.NewLedger(), nil
	default:
		db, err := s.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewLedgerRepository(db), nil
	}
}

func (s *storage) directory(ctx context.Context) (domain.DirectoryRepository, error) {
	switch s.cfg.Directory.Backend {
	case "memory":
		return memory.NewDirectory(), nil
	case "redis":
		s.redis = goredis.NewClient(&goredis.Options{
			Addr: s.cfg.Directory.RedisAddr,
			DB:   s.cfg.Directory.RedisDB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisrepo.NewDirectoryRepository(s.redis, s.cfg.Directory.RedisKey), nil
	case "postgres":
		db, err := s.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewDirectoryRepository(db), nil
	default:
		return file.NewDirectoryRepository(s.cfg.Directory.Path), nil
	}
}

// Close releases every opened connection
func (s *storage) Close(logger *zap.Logger) {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
