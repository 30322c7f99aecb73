package models

import "time"

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusIgnored   LeadStatus = "ignored"
	LeadStatusConverted LeadStatus = "converted"
)

// ValidLeadStatus reports whether s is one of the known lead statuses.
func ValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusIgnored, LeadStatusConverted:
		return true
	}
	return false
}

// Lead is a persisted record of a message judged to indicate buying intent.
// Created at most once per (user, message id) pair; the engine never mutates a
// lead after creation.
type Lead struct {
	ID               string     `json:"id"`
	UserID           int64      `json:"user_id"`
	TemplateID       int64      `json:"template_id"`
	TemplateName     string     `json:"template_name"`
	MessageID        string     `json:"message_id"`
	ChatID           string     `json:"chat_id"`
	ChatTitle        string     `json:"chat_title"`
	AuthorID         string     `json:"author_id"`
	AuthorUsername   string     `json:"author_username"`
	AuthorFirstName  string     `json:"author_first_name"`
	MessageText      string     `json:"message_text"`
	MatchedKeywords  []string   `json:"matched_keywords"`
	Confidence       int        `json:"confidence"`
	IntentType       string     `json:"intent_type"`
	Reasoning        string     `json:"reasoning"`
	Status           LeadStatus `json:"status"`
	NotificationSent bool       `json:"notification_sent"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MonitoringStats summarizes discovered leads for one user.
type MonitoringStats struct {
	TotalLeads         int                `json:"total_leads"`
	LeadsThisWeek      int                `json:"leads_this_week"`
	StatusDistribution map[LeadStatus]int `json:"status_distribution"`
}
