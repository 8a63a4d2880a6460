package model

import "time"

type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	StreakStartDate *time.Time `json:"streakStartDate,omitempty"`
	DaysOnPlatform  int        `json:"daysOnPlatform"`
	LastActiveDate  *time.Time `json:"lastActiveDate,omitempty"`
	PanicClicks     int        `json:"panicClicks"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// StreakActive reports whether the user currently has a running streak.
func (u *User) StreakActive() bool {
	return u.StreakStartDate != nil
}
