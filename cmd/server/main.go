// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/controller"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/metrics"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

func main() {
	cfg, foundEnv, err := config.Load()
	if err != nil {
		logging.NewDevelopmentLogger().Error("invalid configuration", logging.Err(err))
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stdout, cfg.LogFormat, cfg.SlogLevel())
	if !foundEnv {
		logger.Warn("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
	conn, dialect, err := db.Open(cfg)
	if err != nil {
		logger.Error("failed to open database", logging.Err(err))
		os.Exit(1)
	}
	defer conn.Close()
	if err := db.Migrate(conn, dialect); err != nil {
		logger.Error("failed to migrate database", logging.Err(err))
		os.Exit(1)
	}
	store := repository.NewStore(conn, dialect)

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	promMetrics := metrics.NewPrometheusMetrics("crowdfund")
	q := queue.NewInMemoryQueue(logger)

	relay := service.NewWorker(store, publisher, logger)
	relay.Metrics = promMetrics
	err = queue.StartEventRelaySubscriber(q, func(eventID string) error {
		return relay.Process(context.Background(), eventID)
	}, logger)
	if err != nil {
		logger.Error("failed to subscribe event relay", logging.Err(err))
		os.Exit(1)
	}

	campaignService := service.NewCampaignService(store, q, cfg.Rent(), logger)
	campaignService.Metrics = promMetrics
	campaignService.FaucetMaxLamports = cfg.FaucetMaxLamports

	router := controller.NewRouter(
		controller.NewCampaignController(campaignService, logger),
		handler.NewCampaignHandler(campaignService, logger),
		controller.RouterOptions{
			FaucetEnabled: cfg.FaucetEnabled,
			Metrics:       promMetrics.Handler(),
		},
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("🚀 Server running", "addr", cfg.HTTPAddr, "db", cfg.DBDriver, "faucet", cfg.FaucetEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", logging.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", logging.Err(err))
	}
	// let in-flight relays finish before the database closes
	q.Wait()
	logger.Info("👋 Server stopped")
}

// newPublisher connects to the broker when one is configured and logs events otherwise.
func newPublisher(cfg *config.Config, logger *logging.Logger) (queue.Publisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP_URL not set, events will only be logged")
		return &queue.LogPublisher{Logger: logger.WithComponent("events")}, func() {}
	}
	pub, err := queue.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", logging.Err(err))
		os.Exit(1)
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("failed to close RabbitMQ connection", logging.Err(err))
		}
	}
}
