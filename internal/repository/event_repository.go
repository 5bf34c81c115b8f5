package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

const eventColumns = `seq, id, kind, campaign, payload, status, retry_count, last_error, created_at`

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var payload string
	if err := row.Scan(&e.Seq, &e.ID, &e.Kind, &e.Campaign, &payload, &e.Status, &e.RetryCount, &e.LastError, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Payload = []byte(payload)
	return &e, nil
}

// InsertEvent appends to the outbox. Seq is assigned by the database.
func (t *Tx) InsertEvent(ctx context.Context, e *model.Event) error {
	query := t.rebind(`
        INSERT INTO events (id, kind, campaign, payload, status, retry_count, last_error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING seq
    `)
	err := t.q().QueryRowContext(ctx, query,
		e.ID, string(e.Kind), e.Campaign, string(e.Payload), e.Status, e.RetryCount, e.LastError, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEventByID returns nil when the event does not exist.
func (s *Store) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	query := s.rebind(`SELECT ` + eventColumns + ` FROM events WHERE id = ?`)
	e, err := scanEvent(s.q().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, campaign string) ([]*model.Event, error) {
	query := s.rebind(`SELECT ` + eventColumns + ` FROM events WHERE campaign = ? ORDER BY seq`)
	return s.queryEvents(ctx, query, campaign)
}

// ListPendingEvents returns undelivered events that still have retries left, oldest first.
func (s *Store) ListPendingEvents(ctx context.Context, limit, maxRetries int) ([]*model.Event, error) {
	query := s.rebind(`
        SELECT ` + eventColumns + ` FROM events
        WHERE status IN (?, ?) AND retry_count < ?
        ORDER BY seq LIMIT ?
    `)
	return s.queryEvents(ctx, query, model.EventStatusPending, model.EventStatusFailed, maxRetries, limit)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*model.Event, error) {
	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateEventStatus records a delivery attempt. Failures count against the retry budget.
func (s *Store) UpdateEventStatus(ctx context.Context, id, status, lastError string) error {
	query := s.rebind(`
        UPDATE events
        SET status = ?, last_error = ?,
            retry_count = retry_count + CASE WHEN ? = 'failed' THEN 1 ELSE 0 END
        WHERE id = ?
    `)
	if _, err := s.q().ExecContext(ctx, query, status, lastError, status, id); err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	return nil
}
