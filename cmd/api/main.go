package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/virala/virala-api/internal/config"
	"github.com/virala/virala-api/internal/domain/distribution"
	"github.com/virala/virala-api/internal/domain/referral"
	"github.com/virala/virala-api/internal/domain/reward"
	"github.com/virala/virala-api/internal/domain/user"
	"github.com/virala/virala-api/internal/domain/withdrawal"
	"github.com/virala/virala-api/internal/middleware"
	"github.com/virala/virala-api/internal/pkg/chain"
	"github.com/virala/virala-api/internal/pkg/database"
	"github.com/virala/virala-api/internal/pkg/jwt"
	"github.com/virala/virala-api/internal/pkg/logger"
	"github.com/virala/virala-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Virala API")

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

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	chainClient := chain.NewClient(chain.Config{
		RelayerURL:      cfg.ChainRelayerURL,
		OperatorKey:     cfg.ChainOperatorKey,
		ContractAddress: cfg.ChainContractAddress,
		ChainID:         cfg.ChainID,
		ExplorerURL:     cfg.ChainExplorerURL,
		Timeout:         cfg.ChainSubmitTimeout,
	})
	if chainClient.Enabled() {
		log.Info().
			Str("contract", chainClient.ContractAddress()).
			Int64("chain_id", chainClient.ChainID()).
			Msg("On-chain distribution enabled")
	} else {
		log.Warn().Msg("On-chain distribution disabled: relayer not configured")
	}

	// Repositories
	userRepo := user.NewRepository(db)
	ledgerRepo := reward.NewRepository(db)
	referralRepo := referral.NewRepository(db)
	queueRepo := withdrawal.NewRepository(db)
	batchRepo := distribution.NewRepository(db)

	// Services
	events := reward.NewPublisher(rdb)
	rewardSvc := reward.NewService(ledgerRepo, userRepo, referralRepo, events, reward.Config{
		AdViewAmount:         cfg.RewardAdView,
		AdEngagementAmount:   cfg.RewardAdEngagement,
		SignupBonusAmount:    cfg.RewardSignupBonus,
		ReferralSignupAmount: cfg.RewardReferralSignup,
	})
	referralSvc := referral.NewService(referralRepo, userRepo, rdb)
	distributionSvc := distribution.NewService(batchRepo, chainClient, events)
	withdrawalSvc := withdrawal.NewService(queueRepo, userRepo, chainClient, distributionSvc, rdb, withdrawal.Config{
		MinWithdrawal:  cfg.MinWithdrawal,
		MaxWithdrawal:  cfg.MaxWithdrawal,
		SyncSettlement: cfg.ChainSyncSettlement,
	})

	userSvc := user.NewService(userRepo)

	// Handlers
	userHandler := user.NewHandler(userSvc)
	rewardHandler := reward.NewHandler(rewardSvc)
	referralHandler := referral.NewHandler(referralSvc)
	withdrawalHandler := withdrawal.NewHandler(withdrawalSvc)
	distributionHandler := distribution.NewHandler(distributionSvc, cfg.BatchMaxSize)

	auth := middleware.Auth(jwtService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/rewards", rewardHandler.Routes(auth))
		r.With(auth).Post("/rewards/withdraw", withdrawalHandler.Withdraw)
		r.Mount("/referrals", referralHandler.Routes(auth))
		r.Mount("/users", userHandler.Routes(auth))

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth)
			r.Use(middleware.RequireAdmin)
			r.Mount("/rewards", distributionHandler.Routes())
			r.Post("/rewards/airdrop", rewardHandler.Airdrop)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
