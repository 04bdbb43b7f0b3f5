package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"authkit/internal/config"
	"authkit/internal/email"
	apihttp "authkit/internal/http"
	"authkit/internal/plugin/core"
	"authkit/internal/plugin/otp"
	"authkit/internal/repository/memory"
	"authkit/internal/seed"
	"authkit/internal/server"
	"authkit/internal/token"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	seedUsers, err := seed.LoadUsers(cfg.SeedFile, time.Now())
	if err != nil {
		logger.Fatal("load seed", zap.Error(err))
	}
	userRepo, err := memory.NewUserRepository(memory.UserOptions{
		GenerateID:   newIDGenerator(cfg.IDStrategy, "u_"),
		InitialUsers: seedUsers,
		Locale:       cfg.Locale(),
	})
	if err != nil {
		logger.Fatal("user repository", zap.Error(err))
	}
	otpRepo, err := memory.NewOTPRepository(memory.OTPOptions{
		GenerateID: newIDGenerator(cfg.IDStrategy, "otp_"),
		Locale:     cfg.Locale(),
	})
	if err != nil {
		logger.Fatal("otp repository", zap.Error(err))
	}
	logger.Info("repositories ready", zap.Int("seed_users", len(seedUsers)), zap.String("id_strategy", cfg.IDStrategy))

	var emailSender email.Sender = email.NewLogSender(logger)
	if cfg.SMTPEnabled() {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
			emailSender = email.NewDisabledSender("smtp sender misconfigured")
		} else {
			emailSender = sender
		}
	}

	var (
		otpLimiter  = otp.NewMemoryRateLimiter(cfg.OTPTTL(), cfg.OTPRateLimit)
		tokenStore  token.RefreshStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = otp.NewRedisRateLimiter(redisClient, logger, cfg.OTPTTL(), cfg.OTPRateLimit)
			tokenStore = token.NewRedisRefreshStore(redisClient)
		}
		cancel()
	}

	var tokens *token.Service
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured, session apis disabled")
	} else {
		tokens = token.NewService(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(), token.WithStore(tokenStore))
	}

	corePlugin, err := core.New(logger, core.Options{Users: userRepo, Tokens: tokens})
	if err != nil {
		logger.Fatal("core plugin", zap.Error(err))
	}
	otpPlugin, err := otp.New(logger, otp.Options{
		Repository: otpRepo,
		Send: func(ctx context.Context, to, code string) error {
			return emailSender.SendOTP(ctx, to, code, time.Now().Add(cfg.OTPTTL()))
		},
		Limiter:     otpLimiter,
		TTL:         cfg.OTPTTL(),
		MaxAttempts: cfg.OTPMaxAttempts,
	})
	if err != nil {
		logger.Fatal("otp plugin", zap.Error(err))
	}

	authServer := server.New(logger).
		RegisterMiddleware(server.Recover(logger), server.Logging(logger)).
		RegisterPlugins(corePlugin, otpPlugin)
	logger.Info("api registered", zap.Strings("apis", authServer.API().Paths()))

	router := apihttp.NewRouter(logger, authServer, tokens)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newIDGenerator crea un generador propio para cada repositorio.
func newIDGenerator(strategy, prefix string) memory.IDGenerator {
	if strategy == config.IDStrategyUUID {
		return memory.UUIDGenerator
	}
	return memory.NewSequence(prefix)
}
