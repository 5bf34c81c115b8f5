package queue

import (
	"github.com/unclebandit/crowdfund-backend/internal/logging"
)

// StartEventRelaySubscriber forwards committed event IDs to relay. Returning
// an error from relay makes the queue retry the job.
func StartEventRelaySubscriber(q Queue, relay func(eventID string) error, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	err := q.Subscribe(TopicCampaignEvents, func(payload any) error {
		eventID, ok := payload.(string)
		if !ok {
			logger.Warn("⚠️ invalid payload type, expected event id", "payload", payload)
			return nil
		}
		return relay(eventID)
	})
	if err != nil {
		logger.Error("failed to start subscriber", "topic", TopicCampaignEvents, logging.Err(err))
	}
	return err
}
