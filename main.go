package main

import (
	"context"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"carmarket/auth"
	"carmarket/config"
	"carmarket/database"
	"carmarket/handlers"
	"carmarket/logger"
	"carmarket/middleware"
	"carmarket/repository"
	"carmarket/routes"
	"carmarket/service"
	"carmarket/uploads"
	"carmarket/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logrus.WithField("env", cfg.Env)
	log.Info("starting car market server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== MONGODB =====
	client, err := database.Connect(ctx, cfg.MongoURI, 3)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()
	db := client.Database(cfg.MongoDatabase)

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		cancel()
		log.WithError(err).Fatal("failed to create indexes")
	}
	cancel()

	// ===== SERVICES =====
	users := repository.NewUserRepository(db)
	cars := repository.NewCarRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpiration, cfg.JWTRefreshExpiration)
	google := auth.NewGoogleVerifier(cfg.GoogleClientID)
	if cfg.GoogleClientID == "" {
		log.Warn("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}

	wsManager := websocket.NewManager()
	go wsManager.Start(ctx)

	postService := service.NewPostService(posts, comments, cars, users, wsManager)
	h := handlers.New(
		service.NewAuthService(users, tokens, google),
		service.NewCarService(cars, postService),
		postService,
		service.NewUserService(users, posts),
		newStorage(cfg, log),
	)

	// ===== ROUTER =====
	if cfg.IsProduction() || cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(h, tokens, wsManager, routes.Options{
		AllowedOrigins: cfg.Origins(),
		PublicDir:      cfg.PublicDir,
		Limiter:        newLimiter(ctx, cfg, log),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}

func newStorage(cfg *config.Config, log *logrus.Entry) uploads.Storage {
	if cfg.CloudinaryURL != "" {
		storage, err := uploads.NewCloudinaryStorage(cfg.CloudinaryURL, "carmarket/uploads")
		if err == nil {
			return storage
		}
		log.WithError(err).Warn("Cloudinary unavailable, storing uploads locally")
	}

	storage, err := uploads.NewLocalStorage(filepath.Join(cfg.PublicDir, "uploads"), "/public/uploads")
	if err != nil {
		log.WithError(err).Fatal("failed to prepare upload directory")
	}
	return storage
}

// newLimiter prefers a Redis-backed limiter so every instance shares one budget.
func newLimiter(ctx context.Context, cfg *config.Config, log *logrus.Entry) middleware.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("invalid REDIS_URL, using in-memory rate limiter")
		} else {
			rdb := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				log.WithError(err).Warn("Redis ping failed, rate limiting fails open until it recovers")
			}
			return middleware.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateLimitWindow)
		}
	}
	return middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
}
