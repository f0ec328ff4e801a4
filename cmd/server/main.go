// Package main is the API server entry point. It constructs every
// dependency once, wires the services together explicitly and starts
// the HTTP listener; nothing here is reachable through package-level
// state.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaultpay/internal/config"
	"vaultpay/internal/logger"
	"vaultpay/internal/middleware"
	"vaultpay/internal/repositories"
	"vaultpay/internal/repositories/cache"
	"vaultpay/internal/routes"
	authsvc "vaultpay/internal/services/auth"
	"vaultpay/internal/services/creditcard"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/moneyrequest"
	"vaultpay/internal/services/order"
	"vaultpay/internal/services/payment"
	"vaultpay/internal/services/qrcode"
	"vaultpay/internal/services/reference"
	"vaultpay/internal/services/refund"
	"vaultpay/internal/services/schedule"
	"vaultpay/internal/services/user"
	"vaultpay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadEnv()

	log, err := logger.New(config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := repositories.OpenDB(repositories.DBConfigFromEnv())
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	if err := repositories.Migrate(db); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	var cacheSvc *cache.CacheService
	if err := cache.Ping(context.Background(), redisClient); err != nil {
		// The cache is an accelerator, not a dependency; run without it.
		log.Warnw("redis unavailable, running uncached", "error", err)
	} else {
		cacheSvc = cache.NewCacheService(redisClient, config.GetDurationEnv("CACHE_TTL", 5*time.Minute))
	}

	repos := repositories.NewRegistry(db, cacheSvc, log)

	feeSchedule := fee.DefaultSchedule()
	if path := config.GetEnv("FEE_SCHEDULE_PATH", ""); path != "" {
		feeSchedule, err = fee.LoadSchedule(path)
		if err != nil {
			log.Fatalw("failed to load fee schedule", "path", path, "error", err)
		}
		log.Infow("fee schedule loaded", "path", path)
	}
	fees := fee.NewEngine(feeSchedule)
	refs := reference.NewGenerator()

	ledgerSvc := ledger.NewService(db, repos, fees, refs, cacheSvc, log, nil, ledger.Config{
		MaxRetries: config.GetIntEnv("LEDGER_MAX_RETRIES", 3),
	})

	svcs := routes.Services{
		Auth:   authsvc.NewService(repos.Users, log),
		User:   user.NewService(repos.Users, log),
		Ledger: ledgerSvc,
		Refund: refund.NewService(repos.Transactions, ledgerSvc, log),
		Wallet: wallet.NewService(repos, cacheSvc, log, nil, wallet.Config{
			DefaultCurrency: config.GetEnv("DEFAULT_CURRENCY", "USD"),
		}),
		Payment:      payment.NewService(ledgerSvc, fees, log),
		QR:           qrcode.NewService(repos, log),
		Order:        order.NewService(repos, ledgerSvc, fees, refs, log),
		Schedule:     schedule.NewService(repos, ledgerSvc, log),
		MoneyRequest: moneyrequest.NewService(repos, ledgerSvc, fees, log),
		Cards: creditcard.NewService(repos.Cards,
			creditcard.NewStripeTokenizer(config.GetEnv("STRIPE_SECRET_KEY", "")), log),
	}

	app := fiber.New(fiber.Config{
		AppName:      "vaultpay",
		ReadTimeout:  config.GetDurationEnv("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: config.GetDurationEnv("HTTP_WRITE_TIMEOUT", 15*time.Second),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Signup and login share a per-IP budget against brute force.
	for _, path := range []string{"/api/register", "/api/login"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        config.GetIntEnv("AUTH_RATE_LIMIT", 5),
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "too many requests, please try again later",
				})
			},
		}))
	}

	routes.SetupRoutes(app, svcs, middleware.New(repos.Users, log))

	go func() {
		addr := ":" + config.GetEnv("PORT", "3000")
		log.Infow("server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalw("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorw("shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close() //nolint:errcheck
	}
	redisClient.Close() //nolint:errcheck
}
