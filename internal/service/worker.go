package service

import (
	"context"
	"fmt"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/metrics"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// Worker relays committed outbox events to a Publisher and records the outcome.
type Worker struct {
	EventRepo repository.EventRepositoryInterface
	Publisher queue.Publisher
	Metrics   metrics.Metrics
	Logger    *logging.Logger
}

// Constructor
func NewWorker(repo repository.EventRepositoryInterface, publisher queue.Publisher, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{
		EventRepo: repo,
		Publisher: publisher,
		Metrics:   metrics.NewNopMetrics(),
		Logger:    logger.WithComponent("relay"),
	}
}

// Process publishes one event. Already-sent events are skipped; a publish
// failure marks the event failed so a later poll retries it.
func (w *Worker) Process(ctx context.Context, id string) error {
	e, err := w.EventRepo.GetEventByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load event %s: %w", id, err)
	}
	if e == nil {
		return fmt.Errorf("event %s not found", id)
	}
	if e.Status == model.EventStatusSent {
		return nil
	}

	if err := w.Publisher.Publish(ctx, e); err != nil {
		w.metrics().IncEventsPublished(string(e.Kind), "failed")
		if uerr := w.EventRepo.UpdateEventStatus(ctx, id, model.EventStatusFailed, err.Error()); uerr != nil {
			w.Logger.Error("failed to mark event failed", logging.EventID(id), logging.Err(uerr))
		}
		return fmt.Errorf("publish event %s: %w", id, err)
	}

	w.metrics().IncEventsPublished(string(e.Kind), "sent")
	if err := w.EventRepo.UpdateEventStatus(ctx, id, model.EventStatusSent, ""); err != nil {
		return fmt.Errorf("mark event %s sent: %w", id, err)
	}
	w.Logger.Debug("event relayed", logging.EventID(id), "kind", e.Kind, logging.Campaign(e.Campaign))
	return nil
}

// Drain publishes pending and failed events below maxRetries, oldest first.
// It returns how many were sent.
func (w *Worker) Drain(ctx context.Context, batch, maxRetries int) (int, error) {
	events, err := w.EventRepo.ListPendingEvents(ctx, batch, maxRetries)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, e := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := w.Process(ctx, e.ID); err != nil {
			w.Logger.Warn("event relay failed", logging.EventID(e.ID), "retry_count", e.RetryCount, logging.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// Run drains the outbox every interval until ctx is done.
func (w *Worker) Run(ctx context.Context, interval time.Duration, batch, maxRetries int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sent, err := w.Drain(ctx, batch, maxRetries)
		if err != nil && ctx.Err() == nil {
			w.Logger.Error("outbox poll failed", logging.Err(err))
		} else if sent > 0 {
			w.Logger.Info("outbox drained", "sent", sent)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) metrics() metrics.Metrics {
	if w.Metrics == nil {
		return metrics.NewNopMetrics()
	}
	return w.Metrics
}
