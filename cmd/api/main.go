package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/users-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/users-api/internal/account"
	"github.com/redmonkez12/users-api/internal/auth"
	"github.com/redmonkez12/users-api/internal/config"
	"github.com/redmonkez12/users-api/internal/database"
	"github.com/redmonkez12/users-api/internal/email"
	httpServer "github.com/redmonkez12/users-api/internal/http"
	"github.com/redmonkez12/users-api/internal/logging"
	"github.com/redmonkez12/users-api/internal/ratelimit"
	"github.com/redmonkez12/users-api/internal/user"
)

// @title           Users API
// @version         1.0
// @description     User directory with registration, token login, profile updates and password resets.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token_algorithm", cfg.Auth.Algorithm,
	)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	var rateLimiter account.RateLimiter = ratelimit.Noop{}
	if cfg.RateLimit.Enabled {
		redisClient, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()

		rateLimiter = ratelimit.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.EmailCooldown)
	} else {
		logger.Warn("rate limiting disabled")
	}

	userRepo := user.NewRepository(db)

	hasher, err := auth.NewHasher(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	emailService := email.NewService(cfg.Email)
	if !emailService.Configured() {
		logger.Warn("SMTP not configured, password reset emails will not be sent",
			"log_reset_links", cfg.Email.LogResetLinks,
		)
	}

	accountService := account.NewService(
		userRepo,
		hasher,
		auth.NewAuthenticator(userRepo, hasher),
		tokens,
		emailService,
		logger,
	)
	accountHandler := account.NewHandler(accountService, rateLimiter)
	resolver := auth.NewResolver(tokens, userRepo)

	router := httpServer.NewRouter(cfg, accountHandler, resolver, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// let queued reset emails finish before the process exits
		accountService.Wait()
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
