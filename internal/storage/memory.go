package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/client-hunter/internal/models"
)

// MemoryStorage is a map-backed Storage used for tests and local runs.
type MemoryStorage struct {
	mu             sync.RWMutex
	templates      map[int64]*models.Template
	settings       map[int64]*models.MonitoringSettings
	leads          map[string]*models.Lead
	leadByMessage  map[int64]map[string]string
	nextTemplateID int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		templates:     make(map[int64]*models.Template),
		settings:      make(map[int64]*models.MonitoringSettings),
		leads:         make(map[string]*models.Lead),
		leadByMessage: make(map[int64]map[string]string),
	}
}

func (s *MemoryStorage) CreateTemplate(ctx context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTemplateID++
	t.ID = s.nextTemplateID
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	clone := *t
	s.templates[t.ID] = &clone
	return nil
}

func (s *MemoryStorage) GetTemplate(ctx context.Context, userID, templateID int64) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *MemoryStorage) ListTemplates(ctx context.Context, userID int64) ([]*models.Template, error) {
	return s.filterTemplates(userID, false), nil
}

func (s *MemoryStorage) GetActiveTemplates(ctx context.Context, userID int64) ([]*models.Template, error) {
	return s.filterTemplates(userID, true), nil
}

func (s *MemoryStorage) filterTemplates(userID int64, activeOnly bool) []*models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Template
	for _, t := range s.templates {
		if t.UserID != userID {
			continue
		}
		if activeOnly && !t.IsActive {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStorage) UpdateTemplate(ctx context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templates[t.ID]
	if !ok || existing.UserID != t.UserID {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()

	clone := *t
	s.templates[t.ID] = &clone
	return nil
}

func (s *MemoryStorage) DeleteTemplate(ctx context.Context, userID, templateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[templateID]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(s.templates, templateID)
	return nil
}

func (s *MemoryStorage) GetUsersWithActiveTemplates(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	var users []int64
	for _, t := range s.templates {
		if !t.IsActive {
			continue
		}
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		users = append(users, t.UserID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (s *MemoryStorage) GetSettings(ctx context.Context, userID int64) (*models.MonitoringSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *settings
	if settings.LastCheck != nil {
		t := *settings.LastCheck
		clone.LastCheck = &t
	}
	return &clone, nil
}

func (s *MemoryStorage) SaveSettings(ctx context.Context, settings *models.MonitoringSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.settings[settings.UserID]; ok {
		settings.CreatedAt = existing.CreatedAt
		settings.LastCheck = existing.LastCheck
	} else {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	clone := *settings
	s.settings[settings.UserID] = &clone
	return nil
}

func (s *MemoryStorage) UpdateLastCheck(ctx context.Context, userID int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[userID]
	if !ok {
		return ErrNotFound
	}
	settings.LastCheck = &t
	settings.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) HasLead(ctx context.Context, userID int64, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.leadByMessage[userID][messageID]
	return ok, nil
}

func (s *MemoryStorage) CreateLead(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}

	clone := *lead
	s.leads[lead.ID] = &clone

	byMessage, ok := s.leadByMessage[lead.UserID]
	if !ok {
		byMessage = make(map[string]string)
		s.leadByMessage[lead.UserID] = byMessage
	}
	byMessage[lead.MessageID] = lead.ID
	return nil
}

func (s *MemoryStorage) ListLeads(ctx context.Context, userID int64, status models.LeadStatus, limit, offset int) ([]*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Lead
	for _, lead := range s.leads {
		if lead.UserID != userID {
			continue
		}
		if status != "" && lead.Status != status {
			continue
		}
		clone := *lead
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) UpdateLeadStatus(ctx context.Context, userID int64, leadID string, status models.LeadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[leadID]
	if !ok || lead.UserID != userID {
		return ErrNotFound
	}
	lead.Status = status
	return nil
}

func (s *MemoryStorage) GetStats(ctx context.Context, userID int64) (*models.MonitoringStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.MonitoringStats{
		StatusDistribution: make(map[models.LeadStatus]int),
	}
	weekAgo := time.Now().AddDate(0, 0, -7)
	for _, lead := range s.leads {
		if lead.UserID != userID {
			continue
		}
		stats.TotalLeads++
		stats.StatusDistribution[lead.Status]++
		if lead.CreatedAt.After(weekAgo) {
			stats.LeadsThisWeek++
		}
	}
	return stats, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
