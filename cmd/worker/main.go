package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		logging.NewDevelopmentLogger().Error("invalid configuration", logging.Err(err))
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stdout, cfg.LogFormat, cfg.SlogLevel())

	conn, dialect, err := db.Open(cfg)
	if err != nil {
		logger.Error("failed to connect to DB", logging.Err(err))
		os.Exit(1)
	}
	defer conn.Close()
	if err := db.Migrate(conn, dialect); err != nil {
		logger.Error("failed to migrate database", logging.Err(err))
		os.Exit(1)
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", logging.Err(err))
		os.Exit(1)
	}
	defer closePublisher()

	worker := service.NewWorker(repository.NewStore(conn, dialect), publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker running, polling the outbox...",
		"interval", cfg.WorkerPollInterval, "batch", cfg.WorkerBatchSize, "max_retries", cfg.WorkerMaxRetries)
	worker.Run(ctx, cfg.WorkerPollInterval, cfg.WorkerBatchSize, cfg.WorkerMaxRetries)
	logger.Info("Worker stopped")
}

func newPublisher(cfg *config.Config, logger *logging.Logger) (queue.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP_URL not set, events will only be logged")
		return &queue.LogPublisher{Logger: logger.WithComponent("events")}, func() {}, nil
	}
	pub, err := queue.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() { _ = pub.Close() }, nil
}
