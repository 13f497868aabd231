package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum-api/internal/config"
	apihttp "forum-api/internal/http"
	"forum-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.UsesDevSecret() {
		logger.Warn("using development jwt secret; set JWT_SECRET before deploying")
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	window := time.Duration(cfg.LoginRateWindowMinutes) * time.Minute
	limiter := service.NewLoginRateLimiter(window, cfg.LoginRateMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory login limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisLoginRateLimiter(redisClient, window, cfg.LoginRateMax, logger)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, service.DefaultTokenTTL)
	userSvc := service.NewUserService(logger, st.users, limiter)
	postSvc := service.NewPostService(logger, st.posts)
	demoSvc, err := service.NewDemoService()
	if err != nil {
		logger.Fatal("demo data", zap.Error(err))
	}

	router := apihttp.NewRouter(logger,
		apihttp.RouterConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			EnableSeed:     cfg.EnableSeedEndpoint,
			HealthCheck:    st.ping,
		},
		jwtSvc,
		apihttp.NewUserHandler(logger, userSvc, jwtSvc, cfg.CookieSecure),
		apihttp.NewPostHandler(logger, postSvc),
		apihttp.NewDemoHandler(logger, demoSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("seed_endpoint", cfg.EnableSeedEndpoint),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
