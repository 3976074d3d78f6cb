package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	eduauth "github.com/goliatone/go-eduauth"
	"github.com/goliatone/go-eduauth/otp"
	"github.com/goliatone/go-eduauth/server"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type config struct {
	HTTPAddr        string
	DatabaseDSN     string
	SigningKey      string
	TokenExpiration int
	Issuer          string
	RedisAddr       string
	RedisPassword   string
	OTPTTL          time.Duration
	Debug           bool
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:        envOr("EDUAUTH_HTTP_ADDR", ":9090"),
		DatabaseDSN:     envOr("EDUAUTH_DB_DSN", "file:eduauth.db?cache=shared&mode=rwc"),
		SigningKey:      os.Getenv("EDUAUTH_SIGNING_KEY"),
		TokenExpiration: envIntOr("EDUAUTH_TOKEN_EXPIRATION_HOURS", 72),
		Issuer:          envOr("EDUAUTH_ISSUER", "eduauth"),
		RedisAddr:       os.Getenv("EDUAUTH_REDIS_ADDR"),
		RedisPassword:   os.Getenv("EDUAUTH_REDIS_PASSWORD"),
		OTPTTL:          envDurationOr("EDUAUTH_OTP_TTL", otp.DefaultTTL),
		Debug:           os.Getenv("EDUAUTH_DEBUG") != "",
	}

	if cfg.SigningKey == "" {
		log.Fatal("EDUAUTH_SIGNING_KEY is required")
	}

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if _, err := db.NewCreateTable().
		Model((*eduauth.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		log.Fatalf("db migration failed: %v", err)
	}

	repos := eduauth.NewRepositoryManager(db)
	repos.MustValidate()

	var codes otp.Store = otp.NewMemoryStore().WithTTL(cfg.OTPTTL)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		codes = otp.NewRedisStore(redisClient).WithTTL(cfg.OTPTTL)
	}

	logger := eduauth.DefaultLogger()
	tokens := eduauth.NewTokenService([]byte(cfg.SigningKey), cfg.TokenExpiration, cfg.Issuer, nil, logger)
	provider := eduauth.NewUserProvider(repos.Users()).WithLogger(logger)

	srv, err := server.New(server.Config{
		Users:      repos.Users(),
		Identities: provider,
		Tokens:     tokens,
		Codes:      codes,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		log.Fatalf("server init failed: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "eduauthd",
		DisableStartupMessage: true,
	})
	srv.Register(app)

	go func() {
		log.Printf("eduauthd listening on %s", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
