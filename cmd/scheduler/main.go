// Package main runs the background runner for recurring payments and
// money-request expiry. It polls on a ticker and is paced by a token
// bucket so a backlog of due schedules cannot stampede the database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaultpay/internal/config"
	"vaultpay/internal/logger"
	"vaultpay/internal/repositories"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/moneyrequest"
	"vaultpay/internal/services/reference"
	"vaultpay/internal/services/schedule"

	"golang.org/x/time/rate"
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

	repos := repositories.NewRegistry(db, nil, log)

	feeSchedule := fee.DefaultSchedule()
	if path := config.GetEnv("FEE_SCHEDULE_PATH", ""); path != "" {
		feeSchedule, err = fee.LoadSchedule(path)
		if err != nil {
			log.Fatalw("failed to load fee schedule", "path", path, "error", err)
		}
	}
	fees := fee.NewEngine(feeSchedule)
	refs := reference.NewGenerator()

	ledgerSvc := ledger.NewService(db, repos, fees, refs, nil, log, nil, ledger.Config{})
	scheduleSvc := schedule.NewService(repos, ledgerSvc, log)
	requestSvc := moneyrequest.NewService(repos, ledgerSvc, fees, log)

	interval := config.GetDurationEnv("SCHEDULER_INTERVAL", time.Minute)
	batchSize := config.GetIntEnv("SCHEDULER_BATCH_SIZE", 50)
	limiter := rate.NewLimiter(
		rate.Limit(float64(config.GetIntEnv("SCHEDULER_SWEEPS_PER_MINUTE", 6))/60.0),
		1,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infow("scheduler started", "interval", interval, "batch_size", batchSize)
	for {
		select {
		case <-ctx.Done():
			log.Infow("scheduler shut down")
			return
		case <-ticker.C:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			now := time.Now().UTC()

			report, err := scheduleSvc.RunDue(ctx, now, batchSize)
			if err != nil {
				log.Errorw("schedule sweep failed", "error", err)
			} else if report.Due > 0 {
				log.Infow("schedule sweep complete",
					"due", report.Due,
					"succeeded", report.Succeeded,
					"failed", report.Failed,
					"skipped", report.Skipped,
				)
			}

			if expired, err := requestSvc.ExpireDue(ctx, now); err != nil {
				log.Errorw("money request expiry sweep failed", "error", err)
			} else if expired > 0 {
				log.Infow("money requests expired", "count", expired)
			}
		}
	}
}
