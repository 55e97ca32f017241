package adapter

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/harunnryd/statusrole/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAdapter mirrors log lines into a Telegram chat. The bot is connected on first use.
type TelegramAdapter struct {
	token    string
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegramAdapter(token string) *TelegramAdapter {
	return &TelegramAdapter{
		token:    token,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{},
	}
}

// WithEndpoint points the adapter at a different Bot API endpoint format.
func (t *TelegramAdapter) WithEndpoint(endpoint string, client *http.Client) *TelegramAdapter {
	t.endpoint = endpoint
	if client != nil {
		t.client = client
	}
	return t
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, errors.WrapWithCategory(err, "failed to init telegram bot", errors.ErrTransient)
	}
	slog.Info("Telegram mirror connected", "user", bot.Self.UserName)
	t.bot = bot
	return bot, nil
}

// Send posts content to the chat identified by chatID.
func (t *TelegramAdapter) Send(ctx context.Context, chatID string, content string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return errors.InvalidInput("invalid telegram chat ID: " + err.Error())
	}

	bot, err := t.connect()
	if err != nil {
		return err
	}

	if _, err := bot.Send(tgbotapi.NewMessage(id, content)); err != nil {
		return errors.Wrap(err, "failed to send telegram message")
	}

	slog.Debug("Telegram message sent", "chat_id", chatID)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	bot, err := t.connect()
	if err != nil {
		return err
	}
	if _, err := bot.GetMe(); err != nil {
		return errors.Transient("Telegram connection failed: " + err.Error())
	}
	return nil
}
