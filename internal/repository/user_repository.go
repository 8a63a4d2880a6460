package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"esteemed/backend/internal/model"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO users (
			id, email, password_hash, streak_start_date, days_on_platform,
			last_active_date, panic_clicks, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullableTime(user.StreakStartDate),
		user.DaysOnPlatform,
		nullableTime(user.LastActiveDate),
		user.PanicClicks,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id)
	return scanUser(row)
}

// SetStreakStart marks the beginning of a streak. Single statement, so no
// transaction is needed.
func (r *UserRepository) SetStreakStart(ctx context.Context, userID string, start, now time.Time) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE users SET streak_start_date = ?, updated_at = ? WHERE id = ?`,
		formatTime(start),
		formatTime(now),
		userID,
	)
	if err != nil {
		return fmt.Errorf("set streak start: %w", err)
	}
	return requireRow(res)
}

// ClearStreakTx clears the streak start within a caller-owned transaction so
// the relapse insert and the state reset commit together.
func (r *UserRepository) ClearStreakTx(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE users SET streak_start_date = NULL, updated_at = ? WHERE id = ?`,
		formatTime(now),
		userID,
	)
	if err != nil {
		return fmt.Errorf("clear streak: %w", err)
	}
	return requireRow(res)
}

func (r *UserRepository) IncrementPanicClicks(ctx context.Context, userID string, now time.Time) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE users SET panic_clicks = panic_clicks + 1, updated_at = ? WHERE id = ?`,
		formatTime(now),
		userID,
	)
	if err != nil {
		return fmt.Errorf("increment panic clicks: %w", err)
	}
	return requireRow(res)
}

// RecordDailyUsage bumps days_on_platform and stamps last_active_date. The
// caller decides whether a new calendar day has started.
func (r *UserRepository) RecordDailyUsage(ctx context.Context, userID string, now time.Time) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE users
		 SET days_on_platform = days_on_platform + 1,
		     last_active_date = ?,
			 updated_at = ?
		 WHERE id = ?`,
		formatTime(now),
		formatTime(now),
		userID,
	)
	if err != nil {
		return fmt.Errorf("record daily usage: %w", err)
	}
	return requireRow(res)
}

const selectUser = `SELECT id, email, password_hash, streak_start_date, days_on_platform,
       last_active_date, panic_clicks, created_at, updated_at
  FROM users`

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var streakStart sql.NullString
	var lastActive sql.NullString
	var createdAt string
	var updatedAt string

	err := s.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&streakStart,
		&user.DaysOnPlatform,
		&lastActive,
		&user.PanicClicks,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if streakStart.Valid {
		parsed, parseErr := parseTime(streakStart.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse user streak_start_date: %w", parseErr)
		}
		user.StreakStartDate = &parsed
	}
	if lastActive.Valid {
		parsed, parseErr := parseTime(lastActive.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse user last_active_date: %w", parseErr)
		}
		user.LastActiveDate = &parsed
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse user created_at: %w", err)
	}
	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse user updated_at: %w", err)
	}
	user.CreatedAt = parsedCreatedAt
	user.UpdatedAt = parsedUpdatedAt

	return &user, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
