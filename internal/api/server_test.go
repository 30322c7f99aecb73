package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/client-hunter/internal/classifier"
	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/internal/monitor"
	"github.com/xaenox/client-hunter/internal/notifier"
	"github.com/xaenox/client-hunter/internal/storage"
)

type stubProvider struct {
	messages  []models.Message
	healthErr error
}

func (p *stubProvider) FetchMessages(ctx context.Context, chatID string, cutoff time.Time, limit int) ([]models.Message, error) {
	return p.messages, nil
}

func (p *stubProvider) HealthCheck(ctx context.Context) error { return p.healthErr }
func (p *stubProvider) Close(ctx context.Context) error       { return nil }

type stubClassifier struct{ result classifier.Result }

func (c *stubClassifier) Classify(ctx context.Context, req classifier.Request) (classifier.Result, error) {
	return c.result, nil
}

type dropNotifier struct{}

func (dropNotifier) Send(ctx context.Context, destination, text string) error { return nil }

func newTestServer(t *testing.T, store storage.Storage, provider *stubProvider) *Server {
	logger := zaptest.NewLogger(t)
	scanner := monitor.NewScanner(
		provider,
		classifier.NewGate(&stubClassifier{result: classifier.Result{Confidence: 9}}, classifier.ModeConfidence, time.Second, logger),
		monitor.NewRecorder(store, logger),
		notifier.NewDispatcher(dropNotifier{}, logger),
		store,
		100,
		logger,
	)
	scheduler := monitor.NewScheduler(store, scanner, monitor.SchedulerConfig{}, logger)
	return NewServer(0, store, scheduler, provider, logger)
}

func (s *Server) serve(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListTemplates(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(), &stubProvider{})

	rec := srv.serve(http.MethodPost, "/api/v1/product-templates?user_id=1",
		`{"name":"iPhone 15","keywords":["iphone"],"chat_ids":["-100123"],"lookback_minutes":60}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	rec = srv.serve(http.MethodGet, "/api/v1/product-templates?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var templates []models.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	assert.Len(t, templates, 1)

	// The listing is scoped per user.
	rec = srv.serve(http.MethodGet, "/api/v1/product-templates?user_id=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	assert.Empty(t, templates)
}

func TestCreateTemplateValidation(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(), &stubProvider{})

	rec := srv.serve(http.MethodPost, "/api/v1/product-templates", `{"keywords":["iphone"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.serve(http.MethodPost, "/api/v1/product-templates", `{"name":"iPhone"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.serve(http.MethodPost, "/api/v1/product-templates", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTemplate(t *testing.T) {
	store := storage.NewMemoryStorage()
	srv := newTestServer(t, store, &stubProvider{})

	tpl := &models.Template{UserID: 1, Name: "iPhone", Keywords: []string{"iphone"}, IsActive: true}
	require.NoError(t, store.CreateTemplate(context.Background(), tpl))

	rec := srv.serve(http.MethodPut, "/api/v1/product-templates/1?user_id=1", `{"is_active":false,"min_confidence":8}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := store.GetTemplate(context.Background(), 1, tpl.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 8, updated.MinConfidence)
	assert.Equal(t, "iPhone", updated.Name, "unset fields keep their value")

	rec = srv.serve(http.MethodPut, "/api/v1/product-templates/99?user_id=1", `{"is_active":false}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.serve(http.MethodPut, "/api/v1/product-templates/abc?user_id=1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTemplate(t *testing.T) {
	store := storage.NewMemoryStorage()
	srv := newTestServer(t, store, &stubProvider{})

	tpl := &models.Template{UserID: 1, Name: "iPhone", Keywords: []string{"iphone"}}
	require.NoError(t, store.CreateTemplate(context.Background(), tpl))

	rec := srv.serve(http.MethodDelete, "/api/v1/product-templates/1?user_id=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.serve(http.MethodDelete, "/api/v1/product-templates/1?user_id=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsLifecycle(t *testing.T) {
	store := storage.NewMemoryStorage()
	srv := newTestServer(t, store, &stubProvider{})

	// First read creates defaults.
	rec := srv.serve(http.MethodGet, "/api/v1/monitoring/settings?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var settings models.MonitoringSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, 5, settings.CheckIntervalMinutes)
	assert.False(t, settings.IsActive)

	rec = srv.serve(http.MethodPut, "/api/v1/monitoring/settings?user_id=1",
		`{"notification_accounts":["555"],"check_interval_minutes":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.serve(http.MethodPost, "/api/v1/monitoring/start?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := store.GetSettings(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, saved.IsActive)
	assert.Equal(t, []string{"555"}, saved.NotificationAccounts)
	assert.Equal(t, 10, saved.CheckIntervalMinutes)

	rec = srv.serve(http.MethodPost, "/api/v1/monitoring/stop?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err = store.GetSettings(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, saved.IsActive)
}

func TestManualScan(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.CreateTemplate(ctx, &models.Template{
		UserID:   1,
		Name:     "iPhone 15",
		Keywords: []string{"iphone"},
		ChatIDs:  []string{"-100123"},
		IsActive: true,
	}))
	require.NoError(t, store.SaveSettings(ctx, &models.MonitoringSettings{UserID: 1, IsActive: true}))

	provider := &stubProvider{messages: []models.Message{{
		ID:     "42",
		ChatID: "-100123",
		Text:   "want to buy an iphone",
		SentAt: time.Now(),
	}}}
	srv := newTestServer(t, store, provider)

	rec := srv.serve(http.MethodPost, "/api/v1/monitoring/scan?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	leads, err := store.ListLeads(ctx, 1, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, leads, 1)

	// Scan without settings is a 404.
	rec = srv.serve(http.MethodPost, "/api/v1/monitoring/scan?user_id=7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeadsEndpoints(t *testing.T) {
	store := storage.NewMemoryStorage()
	srv := newTestServer(t, store, &stubProvider{})
	ctx := context.Background()

	lead := &models.Lead{UserID: 1, MessageID: "42", Status: models.LeadStatusNew}
	require.NoError(t, store.CreateLead(ctx, lead))

	rec := srv.serve(http.MethodGet, "/api/v1/potential-clients?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)

	rec = srv.serve(http.MethodGet, "/api/v1/potential-clients?user_id=1&status=contacted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	assert.Empty(t, leads)

	rec = srv.serve(http.MethodGet, "/api/v1/potential-clients?user_id=1&status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.serve(http.MethodPut, "/api/v1/potential-clients/"+lead.ID+"/status?user_id=1", `{"status":"contacted"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := store.ListLeads(ctx, 1, models.LeadStatusContacted, 0, 0)
	require.NoError(t, err)
	assert.Len(t, updated, 1)

	rec = srv.serve(http.MethodPut, "/api/v1/potential-clients/"+lead.ID+"/status?user_id=1", `{"status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.serve(http.MethodPut, "/api/v1/potential-clients/missing/status?user_id=1", `{"status":"ignored"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	store := storage.NewMemoryStorage()
	srv := newTestServer(t, store, &stubProvider{})
	ctx := context.Background()

	require.NoError(t, store.CreateLead(ctx, &models.Lead{UserID: 1, MessageID: "1", Status: models.LeadStatusNew}))
	require.NoError(t, store.CreateLead(ctx, &models.Lead{UserID: 1, MessageID: "2", Status: models.LeadStatusContacted}))

	rec := srv.serve(http.MethodGet, "/api/v1/monitoring/stats?user_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.MonitoringStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalLeads)
	assert.Equal(t, 1, stats.StatusDistribution[models.LeadStatusNew])
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(), &stubProvider{})

	rec := srv.serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpointDegraded(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(), &stubProvider{healthErr: context.DeadlineExceeded})

	rec := srv.serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
