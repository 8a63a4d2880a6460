package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "esteemed/backend/internal/errors"
	"esteemed/backend/internal/logger"
	"esteemed/backend/internal/model"
	"esteemed/backend/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EngagementService handles the fire-and-forget endpoints: feedback, visit
// tracking, and early-access signups.
type EngagementService struct {
	repo *repository.EngagementRepository
	log  *logger.Logger
}

func NewEngagementService(repo *repository.EngagementRepository, log *logger.Logger) *EngagementService {
	return &EngagementService{repo: repo, log: log}
}

func (s *EngagementService) SubmitFeedback(ctx context.Context, userID *string, content string) *apperrors.APIError {
	if strings.TrimSpace(content) == "" {
		return apperrors.BadRequest("invalid_feedback", "feedback is required")
	}

	feedback := model.Feedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertFeedback(ctx, &feedback); err != nil {
		s.log.Error("insert feedback", "error", err)
		return apperrors.Internal("failed to save feedback")
	}
	return nil
}

type VisitInput struct {
	VisitorID string
	UserAgent string
	IP        string
	Country   string
	City      string
}

func (s *EngagementService) TrackVisit(ctx context.Context, input VisitInput) (*model.Visit, *apperrors.APIError) {
	if strings.TrimSpace(input.VisitorID) == "" {
		return nil, apperrors.BadRequest("invalid_visitor_id", "visitorId is required")
	}

	visit := model.Visit{
		ID:        uuid.NewString(),
		VisitorID: input.VisitorID,
		IP:        orUnknown(input.IP),
		Country:   orUnknown(input.Country),
		City:      orUnknown(input.City),
		UserAgent: orUnknown(input.UserAgent),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertVisit(ctx, &visit); err != nil {
		s.log.Error("insert visit", "error", err)
		return nil, apperrors.Internal("failed to track visit")
	}
	return &visit, nil
}

func (s *EngagementService) SignUpEarlyAccess(ctx context.Context, userID, email string) (*model.EarlyAccessSignup, *apperrors.APIError) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.BadRequest("invalid_email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.BadRequest("invalid_email", "invalid email format")
	}

	signup := model.EarlyAccessSignup{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertEarlyAccess(ctx, &signup); err != nil {
		s.log.Error("insert early access signup", "error", err)
		return nil, apperrors.Internal("failed to save signup")
	}
	return &signup, nil
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
