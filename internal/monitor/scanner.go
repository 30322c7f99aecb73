package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/classifier"
	"github.com/xaenox/client-hunter/internal/matcher"
	"github.com/xaenox/client-hunter/internal/metrics"
	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/internal/notifier"
	"github.com/xaenox/client-hunter/internal/storage"
	"github.com/xaenox/client-hunter/internal/telegram"
)

const (
	defaultFetchLimit      = 100
	defaultLookbackMinutes = 60
)

// Scanner executes one template's scan across all its monitored chats:
// pull recent messages, match keywords, gate matches through the classifier,
// and record plus notify on a positive judgment. Failures are isolated per
// chat and per message; a scan never aborts because one unit of work failed.
type Scanner struct {
	provider   telegram.ChatProvider
	gate       *classifier.Gate
	recorder   *Recorder
	dispatcher *notifier.Dispatcher
	store      storage.Storage
	fetchLimit int
	logger     *zap.Logger

	now func() time.Time
}

func NewScanner(
	provider telegram.ChatProvider,
	gate *classifier.Gate,
	recorder *Recorder,
	dispatcher *notifier.Dispatcher,
	store storage.Storage,
	fetchLimit int,
	logger *zap.Logger,
) *Scanner {
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	return &Scanner{
		provider:   provider,
		gate:       gate,
		recorder:   recorder,
		dispatcher: dispatcher,
		store:      store,
		fetchLimit: fetchLimit,
		logger:     logger,
		now:        time.Now,
	}
}

// ScanUser runs every active template for one user. Per-template failures are
// logged and do not stop the remaining templates.
func (s *Scanner) ScanUser(ctx context.Context, userID int64, settings *models.MonitoringSettings) error {
	start := s.now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()
	metrics.UserScans.Inc()

	templates, err := s.store.GetActiveTemplates(ctx, userID)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	if len(templates) == 0 {
		s.logger.Debug("No active templates", zap.Int64("user_id", userID))
		return nil
	}

	for _, tpl := range templates {
		if err := s.ScanTemplate(ctx, userID, tpl, settings); err != nil {
			s.logger.Error("Template scan failed",
				zap.Error(err),
				zap.Int64("user_id", userID),
				zap.String("template", tpl.Name))
		}
	}
	return nil
}

// ScanTemplate scans every monitored chat of one template. A template with no
// keywords or no chats is skipped without error.
func (s *Scanner) ScanTemplate(ctx context.Context, userID int64, tpl *models.Template, settings *models.MonitoringSettings) error {
	if !tpl.IsActive {
		return nil
	}
	if len(tpl.Keywords) == 0 || len(tpl.ChatIDs) == 0 {
		s.logger.Debug("Template has no keywords or chats, skipping",
			zap.Int64("user_id", userID),
			zap.String("template", tpl.Name))
		return nil
	}

	metrics.TemplateScans.Inc()

	lookback := time.Duration(tpl.LookbackMinutes) * time.Minute
	if lookback <= 0 {
		lookback = defaultLookbackMinutes * time.Minute
	}
	cutoff := s.now().Add(-lookback)

	for _, chatID := range tpl.ChatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := s.provider.FetchMessages(ctx, chatID, cutoff, s.fetchLimit)
		if err != nil {
			metrics.ChatFetchFailures.Inc()
			s.logger.Warn("Failed to fetch messages, skipping chat",
				zap.Error(err),
				zap.String("chat_id", chatID),
				zap.String("template", tpl.Name))
			continue
		}

		s.processMessages(ctx, userID, tpl, settings, chatID, cutoff, messages)
	}
	return nil
}

func (s *Scanner) processMessages(
	ctx context.Context,
	userID int64,
	tpl *models.Template,
	settings *models.MonitoringSettings,
	chatID string,
	cutoff time.Time,
	messages []models.Message,
) {
	for _, msg := range messages {
		// Messages arrive newest-first; the first one past the cutoff ends
		// the chat.
		if msg.SentAt.Before(cutoff) {
			break
		}

		matched := matcher.Match(msg.Text, tpl.Keywords)
		if len(matched) == 0 {
			continue
		}
		metrics.KeywordMatches.Inc()

		s.processMatch(ctx, userID, tpl, settings, chatID, msg, matched)
	}
}

// processMatch classifies one keyword match and, on a positive judgment,
// records the lead and sends notifications. Recording and notification are
// independent side effects: a notification failure never suppresses the lead
// record, and a record failure never suppresses the notification.
func (s *Scanner) processMatch(
	ctx context.Context,
	userID int64,
	tpl *models.Template,
	settings *models.MonitoringSettings,
	chatID string,
	msg models.Message,
	matched []string,
) {
	// Already-recorded messages are not classified again; overlapping
	// lookback windows make repeats routine.
	processed, err := s.store.HasLead(ctx, userID, msg.ID)
	if err != nil {
		s.logger.Warn("Failed to check processed state, skipping message",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("message_id", msg.ID))
		return
	}
	if processed {
		return
	}

	judgment := s.gate.Evaluate(ctx, classifier.Request{
		MessageText:     msg.Text,
		ProductName:     tpl.Name,
		Keywords:        tpl.Keywords,
		MatchedKeywords: matched,
		AuthorName:      authorName(msg.Author),
		ChatTitle:       msg.ChatTitle,
	}, tpl.MinConfidence)

	if !judgment.Accepted {
		metrics.ClassifierResults.WithLabelValues("rejected").Inc()
		s.logger.Debug("Match rejected by classifier",
			zap.Int64("user_id", userID),
			zap.String("message_id", msg.ID),
			zap.Int("confidence", judgment.Confidence))
		return
	}
	metrics.ClassifierResults.WithLabelValues("accepted").Inc()

	lead := &models.Lead{
		UserID:          userID,
		TemplateID:      tpl.ID,
		TemplateName:    tpl.Name,
		MessageID:       msg.ID,
		ChatID:          chatID,
		ChatTitle:       msg.ChatTitle,
		AuthorID:        msg.Author.ID,
		AuthorUsername:  msg.Author.Username,
		AuthorFirstName: msg.Author.FirstName,
		MessageText:     msg.Text,
		MatchedKeywords: matched,
		Confidence:      judgment.Confidence,
		IntentType:      judgment.IntentType,
		Reasoning:       judgment.Reasoning,
		Status:          models.LeadStatusNew,
	}

	sent := s.dispatcher.Dispatch(ctx, settings.NotificationAccounts, notifier.Alert{
		TemplateName:    tpl.Name,
		MessageText:     msg.Text,
		MessageID:       msg.ID,
		ChatID:          chatID,
		ChatTitle:       msg.ChatTitle,
		AuthorUsername:  msg.Author.Username,
		AuthorFirstName: msg.Author.FirstName,
		MatchedKeywords: matched,
		Confidence:      judgment.Confidence,
		IntentType:      judgment.IntentType,
		Reasoning:       judgment.Reasoning,
		DetectedAt:      s.now(),
	})
	lead.NotificationSent = sent > 0

	if err := s.recorder.Record(ctx, lead); err != nil {
		s.logger.Error("Failed to record lead",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("message_id", msg.ID))
	}
}

func authorName(a models.Author) string {
	switch {
	case a.Username != "" && a.FirstName != "":
		return "@" + a.Username + " (" + a.FirstName + ")"
	case a.Username != "":
		return "@" + a.Username
	default:
		return strings.TrimSpace(a.FirstName + " " + a.LastName)
	}
}
