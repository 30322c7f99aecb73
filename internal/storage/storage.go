package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/client-hunter/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Templates
	CreateTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, userID, templateID int64) (*models.Template, error)
	ListTemplates(ctx context.Context, userID int64) ([]*models.Template, error)
	UpdateTemplate(ctx context.Context, t *models.Template) error
	DeleteTemplate(ctx context.Context, userID, templateID int64) error
	GetActiveTemplates(ctx context.Context, userID int64) ([]*models.Template, error)
	GetUsersWithActiveTemplates(ctx context.Context) ([]int64, error)

	// Monitoring settings
	GetSettings(ctx context.Context, userID int64) (*models.MonitoringSettings, error)
	SaveSettings(ctx context.Context, s *models.MonitoringSettings) error
	UpdateLastCheck(ctx context.Context, userID int64, t time.Time) error

	// Leads
	HasLead(ctx context.Context, userID int64, messageID string) (bool, error)
	CreateLead(ctx context.Context, lead *models.Lead) error
	ListLeads(ctx context.Context, userID int64, status models.LeadStatus, limit, offset int) ([]*models.Lead, error)
	UpdateLeadStatus(ctx context.Context, userID int64, leadID string, status models.LeadStatus) error
	GetStats(ctx context.Context, userID int64) (*models.MonitoringStats, error)

	Close() error
}
