package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/client-hunter/internal/models"
)

func newTemplate(userID int64, name string, active bool) *models.Template {
	return &models.Template{
		UserID:   userID,
		Name:     name,
		Keywords: []string{"iphone"},
		ChatIDs:  []string{"-100123"},
		IsActive: active,
	}
}

func TestMemoryStorage_TemplateCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	tpl := newTemplate(1, "iPhone 15", true)
	require.NoError(t, s.CreateTemplate(ctx, tpl))
	assert.NotZero(t, tpl.ID)
	assert.False(t, tpl.CreatedAt.IsZero())

	got, err := s.GetTemplate(ctx, 1, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 15", got.Name)

	// Another user cannot see or touch it.
	_, err = s.GetTemplate(ctx, 2, tpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteTemplate(ctx, 2, tpl.ID), ErrNotFound)

	got.Name = "iPhone 15 Pro"
	require.NoError(t, s.UpdateTemplate(ctx, got))
	updated, err := s.GetTemplate(ctx, 1, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 15 Pro", updated.Name)

	require.NoError(t, s.DeleteTemplate(ctx, 1, tpl.ID))
	_, err = s.GetTemplate(ctx, 1, tpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_ActiveTemplateQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.CreateTemplate(ctx, newTemplate(1, "active", true)))
	require.NoError(t, s.CreateTemplate(ctx, newTemplate(1, "paused", false)))
	require.NoError(t, s.CreateTemplate(ctx, newTemplate(2, "other user", true)))

	all, err := s.ListTemplates(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.GetActiveTemplates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "active", active[0].Name)

	users, err := s.GetUsersWithActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, users)
}

func TestMemoryStorage_Settings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	_, err := s.GetSettings(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSettings(ctx, &models.MonitoringSettings{
		UserID:               1,
		NotificationAccounts: []string{"555"},
		CheckIntervalMinutes: 5,
		IsActive:             true,
	}))

	got, err := s.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastCheck)

	checkedAt := time.Now().Add(-time.Minute)
	require.NoError(t, s.UpdateLastCheck(ctx, 1, checkedAt))

	got, err = s.GetSettings(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.LastCheck)
	assert.True(t, got.LastCheck.Equal(checkedAt))

	// Re-saving settings must not wipe the recorded check time.
	got.IsActive = false
	require.NoError(t, s.SaveSettings(ctx, got))
	after, err := s.GetSettings(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, after.LastCheck)
	assert.True(t, after.LastCheck.Equal(checkedAt))

	assert.ErrorIs(t, s.UpdateLastCheck(ctx, 99, time.Now()), ErrNotFound)
}

func TestMemoryStorage_Leads(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	exists, err := s.HasLead(ctx, 1, "42")
	require.NoError(t, err)
	assert.False(t, exists)

	lead := &models.Lead{
		UserID:    1,
		MessageID: "42",
		Status:    models.LeadStatusNew,
	}
	require.NoError(t, s.CreateLead(ctx, lead))
	assert.NotEmpty(t, lead.ID)

	exists, err = s.HasLead(ctx, 1, "42")
	require.NoError(t, err)
	assert.True(t, exists)

	// Same message id under another user is a separate lead space.
	exists, err = s.HasLead(ctx, 2, "42")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.UpdateLeadStatus(ctx, 1, lead.ID, models.LeadStatusContacted))
	leads, err := s.ListLeads(ctx, 1, models.LeadStatusContacted, 0, 0)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, models.LeadStatusContacted, leads[0].Status)

	assert.ErrorIs(t, s.UpdateLeadStatus(ctx, 2, lead.ID, models.LeadStatusIgnored), ErrNotFound)
	assert.ErrorIs(t, s.UpdateLeadStatus(ctx, 1, "missing", models.LeadStatusIgnored), ErrNotFound)
}

func TestMemoryStorage_ListLeadsPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateLead(ctx, &models.Lead{
			UserID:    1,
			MessageID: string(rune('a' + i)),
			Status:    models.LeadStatusNew,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := s.ListLeads(ctx, 1, "", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, "e", page[0].MessageID)
	assert.Equal(t, "d", page[1].MessageID)

	page, err = s.ListLeads(ctx, 1, "", 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].MessageID)

	page, err = s.ListLeads(ctx, 1, "", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryStorage_Stats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.CreateLead(ctx, &models.Lead{UserID: 1, MessageID: "1", Status: models.LeadStatusNew}))
	require.NoError(t, s.CreateLead(ctx, &models.Lead{UserID: 1, MessageID: "2", Status: models.LeadStatusContacted}))
	require.NoError(t, s.CreateLead(ctx, &models.Lead{
		UserID:    1,
		MessageID: "3",
		Status:    models.LeadStatusNew,
		CreatedAt: time.Now().AddDate(0, 0, -10),
	}))
	require.NoError(t, s.CreateLead(ctx, &models.Lead{UserID: 2, MessageID: "4", Status: models.LeadStatusNew}))

	stats, err := s.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLeads)
	assert.Equal(t, 2, stats.LeadsThisWeek)
	assert.Equal(t, 2, stats.StatusDistribution[models.LeadStatusNew])
	assert.Equal(t, 1, stats.StatusDistribution[models.LeadStatusContacted])
}
