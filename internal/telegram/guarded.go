package telegram

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/pkg/retry"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 2 * time.Second
	defaultCloseTimeout  = 3 * time.Second
)

// GuardedProvider serializes access to a single shared chat provider and
// retries transient failures with exponential backoff. After the attempt
// ceiling the failure propagates to the caller, which degrades to skipping
// the chat.
type GuardedProvider struct {
	mu           sync.Mutex
	inner        ChatProvider
	attempts     int
	retryDelay   time.Duration
	closeTimeout time.Duration
	logger       *zap.Logger
}

func NewGuardedProvider(inner ChatProvider, attempts int, retryDelay time.Duration, logger *zap.Logger) *GuardedProvider {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &GuardedProvider{
		inner:        inner,
		attempts:     attempts,
		retryDelay:   retryDelay,
		closeTimeout: defaultCloseTimeout,
		logger:       logger,
	}
}

func (p *GuardedProvider) FetchMessages(ctx context.Context, chatID string, cutoff time.Time, limit int) ([]models.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var messages []models.Message
	err := retry.Do(ctx, p.attempts, p.retryDelay, func() error {
		var opErr error
		messages, opErr = p.inner.FetchMessages(ctx, chatID, cutoff, limit)
		if opErr != nil {
			p.logger.Warn("Fetch attempt failed",
				zap.Error(opErr),
				zap.String("chat_id", chatID))
		}
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (p *GuardedProvider) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inner.HealthCheck(ctx)
}

// Close disconnects the inner provider, giving up after a bounded timeout so
// shutdown can proceed even when the connection hangs.
func (p *GuardedProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.closeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.inner.Close(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.logger.Warn("Provider close timed out")
		return ctx.Err()
	}
}
