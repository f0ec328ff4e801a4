// Package main runs the outbox relay: it drains committed outbox
// events into Kafka. Money movement never waits on this process; if it
// is down, events queue in the outbox until it returns.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"vaultpay/internal/config"
	"vaultpay/internal/events"
	"vaultpay/internal/logger"
	"vaultpay/internal/repositories"
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

	brokers := strings.Split(config.GetEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := config.GetEnv("KAFKA_TOPIC", "vaultpay.events")
	publisher := events.NewKafkaPublisher(brokers, topic)
	defer publisher.Close() //nolint:errcheck

	relay := events.NewRelay(repositories.NewOutboxRepository(db), publisher, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalw("relay stopped", "error", err)
	}
	log.Infow("relay shut down")
}
