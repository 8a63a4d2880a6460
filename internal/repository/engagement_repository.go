package repository

import (
	"context"
	"database/sql"
	"fmt"

	"esteemed/backend/internal/model"
)

// EngagementRepository persists feedback, visit tracking, and early-access
// signups. Write-mostly; nothing in the app reads these back.
type EngagementRepository struct {
	db *sql.DB
}

func NewEngagementRepository(db *sql.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

func (r *EngagementRepository) InsertFeedback(ctx context.Context, feedback *model.Feedback) error {
	var userID interface{}
	if feedback.UserID != nil {
		userID = *feedback.UserID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO feedback (id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		feedback.ID,
		userID,
		feedback.Content,
		formatTime(feedback.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *EngagementRepository) InsertVisit(ctx context.Context, visit *model.Visit) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO visits (id, visitor_id, ip, country, city, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		visit.ID,
		visit.VisitorID,
		visit.IP,
		visit.Country,
		visit.City,
		visit.UserAgent,
		formatTime(visit.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *EngagementRepository) InsertEarlyAccess(ctx context.Context, signup *model.EarlyAccessSignup) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO early_access (id, user_id, email, created_at) VALUES (?, ?, ?, ?)`,
		signup.ID,
		signup.UserID,
		signup.Email,
		formatTime(signup.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert early access signup: %w", err)
	}
	return nil
}
