package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/logging"
)

// TopicCampaignEvents carries outbox event IDs once their transaction commits.
const TopicCampaignEvents = "campaign_events"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue fans payloads out to subscribers in-process, retrying failed
// handlers with a linear backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup

	MaxRetries int
	Backoff    time.Duration
	Logger     *logging.Logger
}

func NewInMemoryQueue(logger *logging.Logger) *InMemoryQueue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		Logger:     logger.WithComponent("queue"),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish hands payload to every subscriber of topic without waiting for them.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]func(payload any) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Topic:      topic,
		Payload:    payload,
		MaxRetries: q.MaxRetries,
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go func(handler func(payload any) error) {
			defer q.wg.Done()
			q.processJob(handler, job)
		}(handler)
	}
	return nil
}

func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for {
		err := handler(job.Payload)
		if err == nil {
			q.Logger.Debug("job processed", "topic", job.Topic, "payload", job.Payload)
			return
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			q.Logger.Warn("job permanently failed", "topic", job.Topic, "payload", job.Payload,
				"attempts", job.RetryCount, logging.Err(err))
			return
		}
		q.Logger.Info("job failed, retrying", "topic", job.Topic, "payload", job.Payload,
			"attempt", job.RetryCount, logging.Err(err))

		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every job published so far has finished.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
