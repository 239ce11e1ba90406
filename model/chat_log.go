package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatLog is one stored question/answer exchange.
type ChatLog struct {
	ID             int64     `json:"id"`
	RID            uuid.UUID `json:"rid"`
	SessionID      string    `json:"session_id"`
	UserInput      string    `json:"user_input"`
	AIResponse     string    `json:"ai_response"`
	RelevantSource string    `json:"relevant_source,omitempty"`
	FeedbackScore  *int      `json:"feedback_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SyncStatus mirrors the bot sync row of system_metadata.
type SyncStatus struct {
	Key           string    `json:"key"`
	LastUpdated   time.Time `json:"last_updated"`
	PendingUpdate bool      `json:"pending_update"`
}
