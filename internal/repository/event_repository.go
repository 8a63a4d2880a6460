package repository

import (
	"context"
	"database/sql"
	"fmt"

	"esteemed/backend/internal/model"
)

// EventRepository persists the immutable urge and relapse event logs.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *EventRepository) InsertUrge(ctx context.Context, event *model.UrgeEvent) error {
	var requestID interface{}
	if event.RequestID != nil {
		requestID = *event.RequestID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO urge_events (id, user_id, occurred_at, "trigger", victory, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.UserID,
		formatTime(event.OccurredAt),
		event.Trigger,
		event.Victory,
		requestID,
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert urge event: %w", err)
	}
	return nil
}

// GetUrgeByRequestID looks up a previously logged urge by its client request
// id, used to collapse double-submits.
func (r *EventRepository) GetUrgeByRequestID(ctx context.Context, userID, requestID string) (*model.UrgeEvent, error) {
	row := r.db.QueryRowContext(
		ctx,
		selectUrge+` WHERE user_id = ? AND request_id = ?`,
		userID,
		requestID,
	)
	return scanUrge(row)
}

// ListUrges returns the user's urge events ordered by occurrence time. The
// aggregation engine treats input as unordered anyway; the ordering is for
// list views.
func (r *EventRepository) ListUrges(ctx context.Context, userID string) ([]model.UrgeEvent, error) {
	rows, err := r.db.QueryContext(
		ctx,
		selectUrge+` WHERE user_id = ? ORDER BY occurred_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list urge events: %w", err)
	}
	defer rows.Close()

	events := make([]model.UrgeEvent, 0)
	for rows.Next() {
		event, scanErr := scanUrge(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urge events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) CountUrges(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM urge_events WHERE user_id = ?`,
		userID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count urge events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) InsertRelapseTx(ctx context.Context, tx *sql.Tx, event *model.RelapseEvent) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO relapse_events (id, user_id, occurred_at, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID,
		event.UserID,
		formatTime(event.OccurredAt),
		event.Reason,
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert relapse event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListRelapses(ctx context.Context, userID string) ([]model.RelapseEvent, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, occurred_at, reason, created_at
		 FROM relapse_events
		 WHERE user_id = ?
		 ORDER BY occurred_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list relapse events: %w", err)
	}
	defer rows.Close()

	events := make([]model.RelapseEvent, 0)
	for rows.Next() {
		event, scanErr := scanRelapse(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relapse events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) CountRelapses(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM relapse_events WHERE user_id = ?`,
		userID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count relapse events: %w", err)
	}
	return count, nil
}

// DeleteAllForUserTx removes every event for the user. Irreversible; only
// the wipe operation calls it.
func (r *EventRepository) DeleteAllForUserTx(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM urge_events WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete urge events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relapse_events WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete relapse events: %w", err)
	}
	return nil
}

const selectUrge = `SELECT id, user_id, occurred_at, "trigger", victory, request_id, created_at
  FROM urge_events`

func scanUrge(s scanner) (*model.UrgeEvent, error) {
	var event model.UrgeEvent
	var occurredAt string
	var requestID sql.NullString
	var createdAt string

	err := s.Scan(
		&event.ID,
		&event.UserID,
		&occurredAt,
		&event.Trigger,
		&event.Victory,
		&requestID,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan urge event: %w", err)
	}

	parsedOccurredAt, err := parseTime(occurredAt)
	if err != nil {
		return nil, fmt.Errorf("parse urge occurred_at: %w", err)
	}
	event.OccurredAt = parsedOccurredAt

	if requestID.Valid {
		value := requestID.String
		event.RequestID = &value
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse urge created_at: %w", err)
	}
	event.CreatedAt = parsedCreatedAt

	return &event, nil
}

func scanRelapse(s scanner) (*model.RelapseEvent, error) {
	var event model.RelapseEvent
	var occurredAt string
	var createdAt string

	err := s.Scan(
		&event.ID,
		&event.UserID,
		&occurredAt,
		&event.Reason,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan relapse event: %w", err)
	}

	parsedOccurredAt, err := parseTime(occurredAt)
	if err != nil {
		return nil, fmt.Errorf("parse relapse occurred_at: %w", err)
	}
	event.OccurredAt = parsedOccurredAt

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse relapse created_at: %w", err)
	}
	event.CreatedAt = parsedCreatedAt

	return &event, nil
}
