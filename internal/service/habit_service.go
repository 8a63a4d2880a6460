package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "esteemed/backend/internal/errors"
	"esteemed/backend/internal/logger"
	"esteemed/backend/internal/model"
	"esteemed/backend/internal/repository"
	"esteemed/backend/internal/stats"
)

const topTriggerLimit = 4

// HabitService owns the streak lifecycle and the urge/relapse event log, and
// assembles derived statistics from the pure stats package.
type HabitService struct {
	userRepo  *repository.UserRepository
	eventRepo *repository.EventRepository
	loc       *time.Location
	log       *logger.Logger
}

func NewHabitService(
	userRepo *repository.UserRepository,
	eventRepo *repository.EventRepository,
	loc *time.Location,
	log *logger.Logger,
) *HabitService {
	return &HabitService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		loc:       loc,
		log:       log,
	}
}

// StreakView is the streak state plus server time, so clients tick the
// elapsed display without trusting their own clock for the baseline.
type StreakView struct {
	StreakStartDate *time.Time    `json:"streakStartDate,omitempty"`
	Elapsed         stats.Elapsed `json:"elapsed"`
	ServerTime      time.Time     `json:"serverTime"`
}

type ProfileView struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	JoinDate        time.Time  `json:"joinDate"`
	StreakStartDate *time.Time `json:"streakStartDate,omitempty"`
	DaysOnPlatform  int        `json:"daysOnPlatform"`
	PanicClicks     int        `json:"panicClicks"`
	UrgeCount       int        `json:"urgeCount"`
	RelapseCount    int        `json:"relapseCount"`
}

type RelapseResult struct {
	Relapse model.RelapseEvent `json:"relapse"`
	Streak  StreakView         `json:"streak"`
}

type LogUrgeResult struct {
	Urge model.UrgeEvent `json:"urge"`
	// Replayed is true when the request id matched an already stored event
	// and no new row was written.
	Replayed bool `json:"replayed"`
}

// StatsView is the full derived-statistics payload for the stats screen.
type StatsView struct {
	StreakDays    int                 `json:"streakDays"`
	Elapsed       stats.Elapsed       `json:"elapsed"`
	UrgesWon      int                 `json:"urgesWon"`
	StreakBroken  int                 `json:"streakBroken"`
	UrgeSeries    []stats.DayBucket   `json:"urgeSeries"`
	RelapseSeries []stats.DayBucket   `json:"relapseSeries"`
	TopTriggers   []stats.TriggerCount `json:"topTriggers"`
	Heatmap       []stats.HeatCell    `json:"heatmap"`
	DailyCounts   []stats.DailyCount  `json:"dailyCounts"`
	ServerTime    time.Time           `json:"serverTime"`
}

func (s *HabitService) GetProfile(ctx context.Context, userID string) (*ProfileView, *apperrors.APIError) {
	user, apiErr := s.getUser(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	urgeCount, err := s.eventRepo.CountUrges(ctx, userID)
	if err != nil {
		s.log.Error("count urge events", "error", err)
		return nil, apperrors.Internal("failed to load profile")
	}
	relapseCount, err := s.eventRepo.CountRelapses(ctx, userID)
	if err != nil {
		s.log.Error("count relapse events", "error", err)
		return nil, apperrors.Internal("failed to load profile")
	}

	return &ProfileView{
		ID:              user.ID,
		Email:           user.Email,
		JoinDate:        user.CreatedAt,
		StreakStartDate: user.StreakStartDate,
		DaysOnPlatform:  user.DaysOnPlatform,
		PanicClicks:     user.PanicClicks,
		UrgeCount:       urgeCount,
		RelapseCount:    relapseCount,
	}, nil
}

// StartStreak transitions Inactive -> Active. Starting while a streak is
// already running is rejected; the caller must log a relapse first. The
// current state rides along in the conflict details so clients can resync.
func (s *HabitService) StartStreak(ctx context.Context, userID string) (*StreakView, *apperrors.APIError) {
	now := time.Now().UTC()

	user, apiErr := s.getUser(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	if user.StreakActive() {
		view := s.toStreakView(user.StreakStartDate, now)
		return nil, apperrors.Conflict("streak_active", "a streak is already active", map[string]interface{}{
			"streak": view,
		})
	}

	if err := s.userRepo.SetStreakStart(ctx, userID, now, now); err != nil {
		s.log.Error("set streak start", "error", err)
		return nil, apperrors.Internal("failed to start streak")
	}

	view := s.toStreakView(&now, now)
	return &view, nil
}

// Relapse transitions Active -> Inactive: exactly one relapse event is
// appended and the streak start is cleared, committed together.
func (s *HabitService) Relapse(ctx context.Context, userID, reason string) (*RelapseResult, *apperrors.APIError) {
	now := time.Now().UTC()

	if _, apiErr := s.getUser(ctx, userID); apiErr != nil {
		return nil, apiErr
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = model.DefaultRelapseReason
	}

	event := model.RelapseEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		OccurredAt: now,
		Reason:     reason,
		CreatedAt:  now,
	}

	tx, err := s.eventRepo.BeginTx(ctx)
	if err != nil {
		s.log.Error("begin relapse tx", "error", err)
		return nil, apperrors.Internal("failed to record relapse")
	}
	defer tx.Rollback()

	if err := s.eventRepo.InsertRelapseTx(ctx, tx, &event); err != nil {
		s.log.Error("insert relapse event", "error", err)
		return nil, apperrors.Internal("failed to record relapse")
	}
	if err := s.userRepo.ClearStreakTx(ctx, tx, userID, now); err != nil {
		s.log.Error("clear streak", "error", err)
		return nil, apperrors.Internal("failed to record relapse")
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("commit relapse tx", "error", err)
		return nil, apperrors.Internal("failed to record relapse")
	}

	return &RelapseResult{
		Relapse: event,
		Streak:  s.toStreakView(nil, now),
	}, nil
}

// LogUrge appends an urge event. Trigger and victory must be non-empty
// after trimming, but the stored text is exactly what was submitted;
// trimming happens only in aggregation. A repeated requestId returns the
// original event instead of inserting a duplicate.
func (s *HabitService) LogUrge(ctx context.Context, userID, trigger, victory, requestID string) (*LogUrgeResult, *apperrors.APIError) {
	if strings.TrimSpace(trigger) == "" {
		return nil, apperrors.BadRequest("invalid_trigger", "trigger is required")
	}
	if strings.TrimSpace(victory) == "" {
		return nil, apperrors.BadRequest("invalid_victory", "victory is required")
	}

	if _, apiErr := s.getUser(ctx, userID); apiErr != nil {
		return nil, apiErr
	}

	requestID = strings.TrimSpace(requestID)
	if requestID != "" {
		existing, err := s.eventRepo.GetUrgeByRequestID(ctx, userID, requestID)
		if err == nil {
			return &LogUrgeResult{Urge: *existing, Replayed: true}, nil
		}
		if err != repository.ErrNotFound {
			s.log.Error("look up urge by request id", "error", err)
			return nil, apperrors.Internal("failed to log urge")
		}
	}

	now := time.Now().UTC()
	event := model.UrgeEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		OccurredAt: now,
		Trigger:    trigger,
		Victory:    victory,
		CreatedAt:  now,
	}
	if requestID != "" {
		event.RequestID = &requestID
	}

	if err := s.eventRepo.InsertUrge(ctx, &event); err != nil {
		// Two in-flight submits can race past the lookup; the unique index
		// wins and the stored event is returned.
		if requestID != "" && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			existing, lookupErr := s.eventRepo.GetUrgeByRequestID(ctx, userID, requestID)
			if lookupErr == nil {
				return &LogUrgeResult{Urge: *existing, Replayed: true}, nil
			}
		}
		s.log.Error("insert urge event", "error", err)
		return nil, apperrors.Internal("failed to log urge")
	}

	return &LogUrgeResult{Urge: event}, nil
}

func (s *HabitService) ListUrges(ctx context.Context, userID string) ([]model.UrgeEvent, *apperrors.APIError) {
	events, err := s.eventRepo.ListUrges(ctx, userID)
	if err != nil {
		s.log.Error("list urge events", "error", err)
		return nil, apperrors.Internal("failed to list urges")
	}
	return events, nil
}

func (s *HabitService) ListRelapses(ctx context.Context, userID string) ([]model.RelapseEvent, *apperrors.APIError) {
	events, err := s.eventRepo.ListRelapses(ctx, userID)
	if err != nil {
		s.log.Error("list relapse events", "error", err)
		return nil, apperrors.Internal("failed to list relapses")
	}
	return events, nil
}

// GetStats loads the user's events and runs the aggregation engine over
// them. Everything derived is computed here, against a single now, so the
// payload is internally consistent.
func (s *HabitService) GetStats(ctx context.Context, userID string) (*StatsView, *apperrors.APIError) {
	now := time.Now().UTC()

	user, apiErr := s.getUser(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	urges, err := s.eventRepo.ListUrges(ctx, userID)
	if err != nil {
		s.log.Error("list urge events", "error", err)
		return nil, apperrors.Internal("failed to load stats")
	}
	relapses, err := s.eventRepo.ListRelapses(ctx, userID)
	if err != nil {
		s.log.Error("list relapse events", "error", err)
		return nil, apperrors.Internal("failed to load stats")
	}

	return &StatsView{
		StreakDays:    stats.StreakDays(user.StreakStartDate, now),
		Elapsed:       stats.ElapsedSince(user.StreakStartDate, now),
		UrgesWon:      len(urges),
		StreakBroken:  len(relapses),
		UrgeSeries:    stats.WeeklySeries(stats.OccurrenceTimes(urges), now, s.loc),
		RelapseSeries: stats.WeeklySeries(stats.RelapseTimes(relapses), now, s.loc),
		TopTriggers:   stats.TopTriggers(urges, topTriggerLimit),
		Heatmap:       stats.Heatmap(urges, s.loc),
		DailyCounts:   stats.DailyCounts(urges, s.loc),
		ServerTime:    now,
	}, nil
}

// RecordUsage bumps the days-on-platform counter at most once per calendar
// day, keyed on the stats time zone.
func (s *HabitService) RecordUsage(ctx context.Context, userID string) (*ProfileView, *apperrors.APIError) {
	now := time.Now().UTC()

	user, apiErr := s.getUser(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	newDay := user.LastActiveDate == nil ||
		user.LastActiveDate.In(s.loc).Format("2006-01-02") != now.In(s.loc).Format("2006-01-02")
	if newDay {
		if err := s.userRepo.RecordDailyUsage(ctx, userID, now); err != nil {
			s.log.Error("record daily usage", "error", err)
			return nil, apperrors.Internal("failed to record usage")
		}
	}

	return s.GetProfile(ctx, userID)
}

func (s *HabitService) RecordPanic(ctx context.Context, userID string) (*ProfileView, *apperrors.APIError) {
	now := time.Now().UTC()

	if _, apiErr := s.getUser(ctx, userID); apiErr != nil {
		return nil, apiErr
	}

	if err := s.userRepo.IncrementPanicClicks(ctx, userID, now); err != nil {
		s.log.Error("increment panic clicks", "error", err)
		return nil, apperrors.Internal("failed to record panic")
	}

	return s.GetProfile(ctx, userID)
}

// WipeAll irreversibly deletes every urge and relapse event and clears the
// streak. The account itself survives.
func (s *HabitService) WipeAll(ctx context.Context, userID string) *apperrors.APIError {
	now := time.Now().UTC()

	if _, apiErr := s.getUser(ctx, userID); apiErr != nil {
		return apiErr
	}

	tx, err := s.eventRepo.BeginTx(ctx)
	if err != nil {
		s.log.Error("begin wipe tx", "error", err)
		return apperrors.Internal("failed to wipe data")
	}
	defer tx.Rollback()

	if err := s.eventRepo.DeleteAllForUserTx(ctx, tx, userID); err != nil {
		s.log.Error("delete events", "error", err)
		return apperrors.Internal("failed to wipe data")
	}
	if err := s.userRepo.ClearStreakTx(ctx, tx, userID, now); err != nil {
		s.log.Error("clear streak", "error", err)
		return apperrors.Internal("failed to wipe data")
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("commit wipe tx", "error", err)
		return apperrors.Internal("failed to wipe data")
	}

	return nil
}

func (s *HabitService) getUser(ctx context.Context, userID string) (*model.User, *apperrors.APIError) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		s.log.Error("get user", "error", err)
		return nil, apperrors.Internal("failed to load user")
	}
	return user, nil
}

func (s *HabitService) toStreakView(startedAt *time.Time, now time.Time) StreakView {
	return StreakView{
		StreakStartDate: startedAt,
		Elapsed:         stats.ElapsedSince(startedAt, now),
		ServerTime:      now,
	}
}
