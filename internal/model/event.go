package model

import "time"

// DefaultRelapseReason is stored when a relapse is logged without a reason.
const DefaultRelapseReason = "No reason provided"

// UrgeEvent records a successfully resisted craving. Events are immutable
// once created; trigger and victory text is stored exactly as submitted.
type UrgeEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	Trigger    string    `json:"trigger"`
	Victory    string    `json:"victory"`
	RequestID  *string   `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RelapseEvent records the end of a streak.
type RelapseEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}
