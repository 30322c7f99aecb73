package monitor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/metrics"
	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/internal/storage"
)

// Lead message text is stored truncated.
const maxLeadTextLen = 1000

// Recorder persists leads at most once per (user, message id) pair.
// Overlapping lookback windows across consecutive ticks are expected, so a
// re-scan of an already recorded message is skipped silently.
type Recorder struct {
	store  storage.Storage
	logger *zap.Logger
}

func NewRecorder(store storage.Storage, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record writes the lead unless one already exists for the same user and
// message. A store failure is reported to the caller but must not abort the
// scan; the caller logs and moves on.
func (r *Recorder) Record(ctx context.Context, lead *models.Lead) error {
	exists, err := r.store.HasLead(ctx, lead.UserID, lead.MessageID)
	if err != nil {
		return fmt.Errorf("check existing lead: %w", err)
	}
	if exists {
		r.logger.Debug("Message already recorded, skipping",
			zap.Int64("user_id", lead.UserID),
			zap.String("message_id", lead.MessageID))
		return nil
	}

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	lead.MessageText = truncate(lead.MessageText, maxLeadTextLen)

	if err := r.store.CreateLead(ctx, lead); err != nil {
		return fmt.Errorf("save lead: %w", err)
	}

	metrics.LeadsRecorded.Inc()
	r.logger.Info("Saved potential client",
		zap.Int64("user_id", lead.UserID),
		zap.String("template", lead.TemplateName),
		zap.String("author", lead.AuthorUsername),
		zap.Int("confidence", lead.Confidence))
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
