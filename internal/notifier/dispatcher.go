package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/metrics"
)

const maxAlertTextLen = 200

// Alert is the payload of one lead notification.
type Alert struct {
	TemplateName    string
	MessageText     string
	MessageID       string
	ChatID          string
	ChatTitle       string
	AuthorUsername  string
	AuthorFirstName string
	MatchedKeywords []string
	Confidence      int
	IntentType      string
	Reasoning       string
	DetectedAt      time.Time
}

// Dispatcher formats an alert and delivers it to every configured
// destination. A failed destination never blocks the others.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewDispatcher(notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Dispatch returns the number of destinations that accepted the alert.
func (d *Dispatcher) Dispatch(ctx context.Context, destinations []string, a Alert) int {
	if len(destinations) == 0 {
		d.logger.Info("No notification destinations configured",
			zap.String("template", a.TemplateName))
		return 0
	}

	text := FormatAlert(a)
	sent := 0
	for _, dest := range destinations {
		if dest == "" {
			continue
		}
		if err := d.notifier.Send(ctx, dest, text); err != nil {
			d.logger.Error("Failed to deliver notification",
				zap.Error(err),
				zap.String("destination", dest),
				zap.String("template", a.TemplateName))
			metrics.NotificationFailures.Inc()
			continue
		}
		sent++
	}
	return sent
}

// FormatAlert renders a human-readable alert text.
func FormatAlert(a Alert) string {
	var b strings.Builder

	b.WriteString("🔥 Potential client found!\n\n")
	fmt.Fprintf(&b, "💡 Product: %s\n", a.TemplateName)
	fmt.Fprintf(&b, "📱 Message: %q\n", truncate(a.MessageText, maxAlertTextLen))

	author := a.AuthorUsername
	if author != "" {
		author = "@" + author
	}
	if a.AuthorFirstName != "" {
		if author != "" {
			author += " (" + a.AuthorFirstName + ")"
		} else {
			author = a.AuthorFirstName
		}
	}
	if author == "" {
		author = "unknown"
	}
	fmt.Fprintf(&b, "👤 Author: %s\n", author)

	chat := a.ChatTitle
	if chat == "" {
		chat = a.ChatID
	}
	fmt.Fprintf(&b, "💬 Chat: %s\n", chat)
	fmt.Fprintf(&b, "🎯 Keywords: %s\n", strings.Join(a.MatchedKeywords, ", "))
	fmt.Fprintf(&b, "🤖 Confidence: %d/10\n", a.Confidence)
	if a.IntentType != "" {
		fmt.Fprintf(&b, "📊 Intent: %s\n", a.IntentType)
	}
	if a.Reasoning != "" {
		fmt.Fprintf(&b, "📝 %s\n", truncate(a.Reasoning, maxAlertTextLen))
	}
	if link := MessageLink(a.ChatID, a.MessageID); link != "" {
		fmt.Fprintf(&b, "🔗 %s\n", link)
	}
	fmt.Fprintf(&b, "📅 %s", a.DetectedAt.Format("15:04, 02.01.2006"))

	return b.String()
}

// MessageLink builds a t.me deep link to the original message. Supergroup ids
// carry a -100 prefix that the link format drops.
func MessageLink(chatID, messageID string) string {
	if chatID == "" || messageID == "" {
		return ""
	}
	if strings.HasPrefix(chatID, "@") {
		return fmt.Sprintf("https://t.me/%s/%s", strings.TrimPrefix(chatID, "@"), messageID)
	}
	if strings.HasPrefix(chatID, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%s", strings.TrimPrefix(chatID, "-100"), messageID)
	}
	if strings.HasPrefix(chatID, "-") {
		return fmt.Sprintf("https://t.me/c/%s/%s", strings.TrimPrefix(chatID, "-"), messageID)
	}
	return fmt.Sprintf("https://t.me/%s/%s", chatID, messageID)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
