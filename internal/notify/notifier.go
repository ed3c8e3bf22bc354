package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pigeon_bot/pkg/logger"
)

// Notifier is the outbound channel for fills, stops and breaker alerts.
// Implementations are fire-and-forget: a lost message never blocks a
// tick.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// StatusSource answers the /status command.
type StatusSource interface {
	StatusText(ctx context.Context) (string, error)
}

// Telegram pushes to one chat and serves /status over long polling.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	status StatusSource
}

func NewTelegram(token string, chatID int64, status StatusSource) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, status: status}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("telegram send failed: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start runs the long-polling loop for incoming commands until ctx is
// done. Only messages from the configured chat are honored.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "status":
					go t.handleStatus(ctx)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) handleStatus(ctx context.Context) {
	if t.status == nil {
		t.Send("status source not wired")
		return
	}
	text, err := t.status.StatusText(ctx)
	if err != nil {
		t.Sendf("status failed: %v", err)
		return
	}
	t.Send(text)
}

// Stdout routes notifications into the process log. Default in paper
// mode and whenever no telegram token is configured.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(msg string)                  { logger.Info("%s", msg) }
func (s *Stdout) Sendf(format string, args ...any) { logger.Info(format, args...) }
