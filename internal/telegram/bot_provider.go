package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/models"
)

const defaultBufferSize = 500

// BotProvider serves chat history from the bot's update feed. The bot must be
// a member of every monitored group; messages it sees are kept in a bounded
// newest-first buffer per chat, and scans read from that buffer. Chats are
// addressable by numeric id or by @username once a message from the chat has
// been seen.
type BotProvider struct {
	api        *tgbotapi.BotAPI
	bufferSize int
	logger     *zap.Logger

	mu      sync.RWMutex
	byChat  map[int64][]models.Message
	handles map[string]int64
}

func NewBotProvider(token string, bufferSize int, logger *zap.Logger) (*BotProvider, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &BotProvider{
		api:        api,
		bufferSize: bufferSize,
		logger:     logger,
		byChat:     make(map[int64][]models.Message),
		handles:    make(map[string]int64),
	}, nil
}

// API exposes the underlying bot client so the notifier can share the same
// connection.
func (p *BotProvider) API() *tgbotapi.BotAPI {
	return p.api
}

// Start begins consuming the update feed in the background.
func (p *BotProvider) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := p.api.GetUpdatesChan(u)
	go p.consume(updates)
}

func (p *BotProvider) consume(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		text := update.Message.Text
		if text == "" {
			text = update.Message.Caption
		}
		if text == "" {
			continue
		}
		p.record(update.Message, text)
	}
}

func (p *BotProvider) record(msg *tgbotapi.Message, text string) {
	m := models.Message{
		ID:        strconv.Itoa(msg.MessageID),
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		ChatTitle: msg.Chat.Title,
		Text:      text,
		SentAt:    msg.Time(),
	}
	if msg.From != nil {
		m.Author = models.Author{
			ID:        strconv.FormatInt(msg.From.ID, 10),
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			IsBot:     msg.From.IsBot,
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf := append([]models.Message{m}, p.byChat[msg.Chat.ID]...)
	if len(buf) > p.bufferSize {
		buf = buf[:p.bufferSize]
	}
	p.byChat[msg.Chat.ID] = buf

	if msg.Chat.UserName != "" {
		p.handles[strings.ToLower(msg.Chat.UserName)] = msg.Chat.ID
	}
}

func (p *BotProvider) FetchMessages(ctx context.Context, chatID string, cutoff time.Time, limit int) ([]models.Message, error) {
	id, err := p.resolveChat(chatID)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []models.Message
	for _, m := range p.byChat[id] {
		// Buffer is newest-first; everything past the cutoff is older still.
		if m.SentAt.Before(cutoff) {
			break
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// resolveChat accepts a numeric chat id or an @handle seen in the update feed.
func (p *BotProvider) resolveChat(chatID string) (int64, error) {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id, nil
	}

	handle := strings.ToLower(strings.TrimPrefix(chatID, "@"))

	p.mu.RLock()
	defer p.mu.RUnlock()

	if id, ok := p.handles[handle]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown chat %q: no messages seen from it yet", chatID)
}

func (p *BotProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.api.GetMe(); err != nil {
		return fmt.Errorf("bot health check: %w", err)
	}
	return nil
}

func (p *BotProvider) Close(ctx context.Context) error {
	p.api.StopReceivingUpdates()
	return nil
}
