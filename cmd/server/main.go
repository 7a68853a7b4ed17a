package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"

	"syncactivity/internal/cache"
	"syncactivity/internal/config"
	"syncactivity/internal/database"
	"syncactivity/internal/handler"
	"syncactivity/internal/logging"
	"syncactivity/internal/metrics"
	"syncactivity/internal/redis"
	"syncactivity/internal/repository"
	"syncactivity/internal/service"
	transport "syncactivity/internal/transport/http"
	authmw "syncactivity/internal/transport/http/middleware"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	// 2. Connect to storage
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// 3. Optional collaborators
	clock := clockwork.NewRealClock()

	var provisioner service.IdentityProvisioner
	var identity handler.IdentityBridge
	if cfg.Identity.Enabled() {
		bridge := service.NewIdentityBridge(cfg.Identity)
		provisioner, identity = bridge, bridge
	} else {
		slog.Info("Identity provider not configured, using local identities only")
	}

	var pictures service.PictureStore
	if cfg.StorageEnabled() {
		media, err := service.NewMediaService(ctx, cfg)
		if err != nil {
			return err
		}
		pictures = media
	} else {
		slog.Info("Object storage not configured, profile picture upload disabled")
	}

	// 4. Repositories and services
	userRepo := repository.NewUserRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	requestRepo := repository.NewFriendRequestRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	tokenService, err := service.NewTokenService(cfg, clock)
	if err != nil {
		return err
	}
	userService := service.NewUserService(userRepo, friendshipRepo, provisioner, pictures)
	friendService := service.NewFriendService(userRepo, friendshipRepo, requestRepo, database.NewTxRunner(db), clock)
	activityService := service.NewActivityService(activityRepo, userRepo, clock)

	// 5. HTTP
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.MaxAge = int(cfg.LoginAttemptTTL.Seconds())

	router := transport.NewRouter(transport.RouterConfig{
		AuthHandler: handler.NewAuthHandler(
			userService,
			tokenService,
			identity,
			cache.NewLoginAttemptStore(redisClient),
			sessionStore,
			cfg.LoginAttemptTTL,
		),
		UserHandler:     handler.NewUserHandler(userService),
		FriendHandler:   handler.NewFriendHandler(friendService),
		ActivityHandler: handler.NewActivityHandler(activityService),
		Tokens:          tokenService,
		Users:           userService,
		AuthLimiter:     authmw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, clock),
		AllowedOrigins:  cfg.AllowedOrigins,
		Registry:        metrics.NewRegistry(),
	})

	return transport.Run(ctx, transport.NewServer(cfg.ServerPort, router))
}
