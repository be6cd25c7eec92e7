package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/virala/virala-api/internal/config"
	"github.com/virala/virala-api/internal/domain/distribution"
	"github.com/virala/virala-api/internal/domain/reward"
	"github.com/virala/virala-api/internal/domain/withdrawal"
	"github.com/virala/virala-api/internal/pkg/chain"
	"github.com/virala/virala-api/internal/pkg/database"
	"github.com/virala/virala-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().Msg("Starting distributor")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	chainClient := chain.NewClient(chain.Config{
		RelayerURL:      cfg.ChainRelayerURL,
		OperatorKey:     cfg.ChainOperatorKey,
		ContractAddress: cfg.ChainContractAddress,
		ChainID:         cfg.ChainID,
		ExplorerURL:     cfg.ChainExplorerURL,
		Timeout:         cfg.ChainSubmitTimeout,
	})
	if !chainClient.Enabled() {
		log.Fatal().Msg("Relayer not configured: distributor has nothing to do")
	}

	svc := distribution.NewService(
		distribution.NewRepository(db),
		chainClient,
		reward.NewPublisher(rdb),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Withdrawal requests publish a wake-up; polling still runs regardless
	// so a missed message only delays a batch by one interval.
	wake := make(chan struct{}, 1)
	go subscribeWakeups(ctx, rdb, wake)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(cfg.DistributorPollEvery)
	defer ticker.Stop()
	lastIdleLog := time.Time{}
	idleLogEvery := 1 * time.Minute

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("distributor stopped")
			return
		case <-wake:
			// immediate run
		case <-ticker.C:
		}

		result, err := svc.RunBatch(ctx, cfg.BatchMaxSize)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			log.Error().Err(err).Msg("Distribution run failed")
			continue
		}

		if result.Processed == 0 {
			now := time.Now()
			if lastIdleLog.IsZero() || now.Sub(lastIdleLog) >= idleLogEvery {
				log.Info().Msg("Idle: no confirmed withdrawals waiting")
				lastIdleLog = now
			}
			continue
		}

		event := log.Info()
		if result.Failed > 0 {
			event = log.Warn()
		}
		event.
			Int("processed", result.Processed).
			Int("distributed", result.Distributed).
			Int("failed", result.Failed).
			Str("tx_hash", result.TxHash).
			Msg("Distribution run finished")

		// Drain the backlog without waiting for the next tick
		if result.Processed >= cfg.BatchMaxSize {
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}

func subscribeWakeups(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	sub := rdb.Subscribe(ctx, withdrawal.WakeChannel)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Channel():
			// non-blocking wake-up
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}
