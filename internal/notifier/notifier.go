package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier delivers one alert text to one destination handle.
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}

// TelegramNotifier sends alerts through the bot API. Destinations are numeric
// chat ids or @channel handles.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegramNotifier(api *tgbotapi.BotAPI, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{api: api, logger: logger}
}

func (n *TelegramNotifier) Send(ctx context.Context, destination, text string) error {
	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(destination, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		handle := destination
		if !strings.HasPrefix(handle, "@") {
			handle = "@" + handle
		}
		msg = tgbotapi.NewMessageToChannel(handle, text)
	}

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send notification to %s: %w", destination, err)
	}
	return nil
}
