package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/internal/storage"
)

type createTemplateRequest struct {
	Name                 string   `json:"name"`
	Keywords             []string `json:"keywords"`
	ChatIDs              []string `json:"chat_ids"`
	LookbackMinutes      int      `json:"lookback_minutes"`
	CheckIntervalMinutes int      `json:"check_interval_minutes"`
	MinConfidence        int      `json:"min_confidence"`
}

type updateTemplateRequest struct {
	Name                 *string   `json:"name"`
	Keywords             *[]string `json:"keywords"`
	ChatIDs              *[]string `json:"chat_ids"`
	LookbackMinutes      *int      `json:"lookback_minutes"`
	CheckIntervalMinutes *int      `json:"check_interval_minutes"`
	MinConfidence        *int      `json:"min_confidence"`
	IsActive             *bool     `json:"is_active"`
}

type updateSettingsRequest struct {
	NotificationAccounts *[]string `json:"notification_accounts"`
	CheckIntervalMinutes *int      `json:"check_interval_minutes"`
	IsActive             *bool     `json:"is_active"`
}

type updateStatusRequest struct {
	Status models.LeadStatus `json:"status"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if len(req.Keywords) == 0 {
		s.respondError(w, http.StatusBadRequest, "keywords list cannot be empty")
		return
	}

	tpl := &models.Template{
		UserID:               userID(r),
		Name:                 req.Name,
		Keywords:             req.Keywords,
		ChatIDs:              req.ChatIDs,
		LookbackMinutes:      req.LookbackMinutes,
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		MinConfidence:        req.MinConfidence,
		IsActive:             true,
	}
	if err := s.store.CreateTemplate(r.Context(), tpl); err != nil {
		s.logger.Error("Failed to create template", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to create template")
		return
	}
	s.respondJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("Failed to list templates", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	if templates == nil {
		templates = []*models.Template{}
	}
	s.respondJSON(w, http.StatusOK, templates)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	var req updateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Keywords != nil && len(*req.Keywords) == 0 {
		s.respondError(w, http.StatusBadRequest, "keywords list cannot be empty")
		return
	}

	tpl, err := s.store.GetTemplate(r.Context(), userID(r), templateID)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load template", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Keywords != nil {
		tpl.Keywords = *req.Keywords
	}
	if req.ChatIDs != nil {
		tpl.ChatIDs = *req.ChatIDs
	}
	if req.LookbackMinutes != nil {
		tpl.LookbackMinutes = *req.LookbackMinutes
	}
	if req.CheckIntervalMinutes != nil {
		tpl.CheckIntervalMinutes = *req.CheckIntervalMinutes
	}
	if req.MinConfidence != nil {
		tpl.MinConfidence = *req.MinConfidence
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := s.store.UpdateTemplate(r.Context(), tpl); err != nil {
		s.logger.Error("Failed to update template", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to update template")
		return
	}
	s.respondJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, err := strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	err = s.store.DeleteTemplate(r.Context(), userID(r), templateID)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete template", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "template deleted"})
}

// handleGetSettings creates default settings on first access, matching the
// behavior users expect from the settings page.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	settings, err := s.store.GetSettings(r.Context(), uid)
	if errors.Is(err, storage.ErrNotFound) {
		settings = &models.MonitoringSettings{
			UserID:               uid,
			NotificationAccounts: []string{},
			CheckIntervalMinutes: 5,
			IsActive:             false,
		}
		if err := s.store.SaveSettings(r.Context(), settings); err != nil {
			s.logger.Error("Failed to create default settings", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "failed to create settings")
			return
		}
		s.respondJSON(w, http.StatusOK, settings)
		return
	}
	if err != nil {
		s.logger.Error("Failed to load settings", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.applySettingsUpdate(w, r, req)
}

func (s *Server) applySettingsUpdate(w http.ResponseWriter, r *http.Request, req updateSettingsRequest) {
	uid := userID(r)
	settings, err := s.store.GetSettings(r.Context(), uid)
	if errors.Is(err, storage.ErrNotFound) {
		settings = &models.MonitoringSettings{
			UserID:               uid,
			NotificationAccounts: []string{},
			CheckIntervalMinutes: 5,
		}
		err = nil
	}
	if err != nil {
		s.logger.Error("Failed to load settings", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	if req.NotificationAccounts != nil {
		settings.NotificationAccounts = *req.NotificationAccounts
	}
	if req.CheckIntervalMinutes != nil {
		settings.CheckIntervalMinutes = *req.CheckIntervalMinutes
	}
	if req.IsActive != nil {
		settings.IsActive = *req.IsActive
	}

	if err := s.store.SaveSettings(r.Context(), settings); err != nil {
		s.logger.Error("Failed to save settings", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	active := true
	s.applySettingsUpdate(w, r, updateSettingsRequest{IsActive: &active})
}

func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	active := false
	s.applySettingsUpdate(w, r, updateSettingsRequest{IsActive: &active})
}

// handleManualScan triggers a one-shot scan outside the timer loop.
func (s *Server) handleManualScan(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	settings, err := s.store.GetSettings(r.Context(), uid)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "monitoring settings not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load settings", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	if err := s.scheduler.Scan(r.Context(), uid, settings); err != nil {
		s.logger.Error("Manual scan failed", zap.Error(err), zap.Int64("user_id", uid))
		s.respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "scan completed"})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	status := models.LeadStatus(r.URL.Query().Get("status"))
	if status != "" && !models.ValidLeadStatus(status) {
		s.respondError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	leads, err := s.store.ListLeads(r.Context(), userID(r), status, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list leads", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	s.respondJSON(w, http.StatusOK, leads)
}

func (s *Server) handleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidLeadStatus(req.Status) {
		s.respondError(w, http.StatusBadRequest, "invalid status, must be one of: new, contacted, ignored, converted")
		return
	}

	err := s.store.UpdateLeadStatus(r.Context(), userID(r), leadID, req.Status)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to update lead status", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to update lead status")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("Failed to load stats", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"scheduler_running": s.scheduler.Running(),
		"provider":          "ok",
	}
	status := http.StatusOK
	if err := s.provider.HealthCheck(r.Context()); err != nil {
		health["provider"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, health)
}

func userID(r *http.Request) int64 {
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id
		}
	}
	return 1
}

func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
