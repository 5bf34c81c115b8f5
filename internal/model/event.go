package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventPledge      EventKind = "pledge"
	EventGoalReached EventKind = "goal_reached"
	EventCancel      EventKind = "cancel"
	EventWithdraw    EventKind = "withdraw"
)

// Outbox delivery states.
const (
	EventStatusPending = "pending"
	EventStatusSent    = "sent"
	EventStatusFailed  = "failed"
)

// Event is a notification written in the same transaction as the state change
// it describes, then relayed to the message broker.
type Event struct {
	ID         string          `db:"id" json:"id"`
	Seq        int64           `db:"seq" json:"seq"`
	Kind       EventKind       `db:"kind" json:"kind"`
	Campaign   string          `db:"campaign" json:"campaign"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	Status     string          `db:"status" json:"status"`
	RetryCount int             `db:"retry_count" json:"retry_count"`
	LastError  string          `db:"last_error" json:"last_error,omitempty"`
	CreatedAt  int64           `db:"created_at" json:"created_at"`
}

type PledgeEvent struct {
	Campaign string `json:"campaign"`
	Backer   string `json:"backer"`
	Amount   int64  `json:"amount"`
}

type GoalReachedEvent struct {
	Campaign string `json:"campaign"`
	Goal     int64  `json:"goal"`
	Raised   int64  `json:"raised"`
}

type CancelEvent struct {
	Campaign string `json:"campaign"`
}

type WithdrawEvent struct {
	Campaign string `json:"campaign"`
	Creator  string `json:"creator"`
	Amount   int64  `json:"amount"`
}

// NewEvent builds a pending outbox event carrying payload.
func NewEvent(kind EventKind, campaign string, payload any, now time.Time) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Campaign:  campaign,
		Payload:   body,
		Status:    EventStatusPending,
		CreatedAt: now.Unix(),
	}, nil
}
