package telegram

import (
	"context"
	"time"

	"github.com/xaenox/client-hunter/internal/models"
)

// ChatProvider supplies recent messages for a chat. Implementations must
// accept chat identifiers in numeric or @handle form and return messages
// ordered newest-first. Failures surface as errors, never as sentinel values.
type ChatProvider interface {
	// FetchMessages returns up to limit messages newer than cutoff for the
	// given chat, newest first.
	FetchMessages(ctx context.Context, chatID string, cutoff time.Time, limit int) ([]models.Message, error)

	// HealthCheck verifies the underlying connection is usable.
	HealthCheck(ctx context.Context) error

	// Close releases the provider's connection.
	Close(ctx context.Context) error
}
