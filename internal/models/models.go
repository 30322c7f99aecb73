package models

import "time"

// Template is a named product configuration owned by a user: the keywords to
// look for, the chats to watch, and the thresholds that govern a scan.
type Template struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"user_id"`
	Name                 string    `json:"name"`
	Keywords             []string  `json:"keywords"`
	ChatIDs              []string  `json:"chat_ids"`
	LookbackMinutes      int       `json:"lookback_minutes"`
	CheckIntervalMinutes int       `json:"check_interval_minutes"`
	MinConfidence        int       `json:"min_confidence"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// MonitoringSettings is the per-user global monitoring state. LastCheck is the
// only field the engine itself writes back.
type MonitoringSettings struct {
	UserID               int64      `json:"user_id"`
	NotificationAccounts []string   `json:"notification_accounts"`
	CheckIntervalMinutes int        `json:"check_interval_minutes"`
	IsActive             bool       `json:"is_active"`
	LastCheck            *time.Time `json:"last_check,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Author identifies the sender of a chat message.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsBot     bool   `json:"is_bot,omitempty"`
}

// Message is a value object produced by the chat provider for the duration of
// one scan. The engine never stores messages directly.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	ChatTitle string    `json:"chat_title,omitempty"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
	Author    Author    `json:"author"`
}
