package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/yt-linkbot/internal/flow"
	"github.com/ytget/yt-linkbot/internal/model"
)

// Defaults
const (
	DefaultPollTimeout   = 60 // seconds, long polling
	DefaultWebhookBuffer = 100
)

// ErrWebhookBusy is returned to Telegram when the update queue is full so
// the update is redelivered later
var ErrWebhookBusy = errors.New("webhook queue full")

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Handler consumes inbound events
type Handler interface {
	HandleText(ctx context.Context, msg flow.TextMessage) error
	HandleButton(ctx context.Context, press flow.ButtonPress) error
}

// Bot is the Telegram messaging gateway
type Bot struct {
	api         botAPI
	logger      *slog.Logger
	pollTimeout int
	incoming    chan tgbotapi.Update
}

// New connects to the Bot API with the given token
func New(token string, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	bot := newBot(api, logger)
	bot.logger.Info("authorized", "username", api.Self.UserName)
	return bot, nil
}

func newBot(api botAPI, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:         api,
		logger:      logger.With("component", "telegram"),
		pollTimeout: DefaultPollTimeout,
		incoming:    make(chan tgbotapi.Update, DefaultWebhookBuffer),
	}
}

// SendText sends a plain message and returns its ID
func (b *Bot) SendText(_ context.Context, conversationID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(conversationID, text)
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendChoices sends a message with one callback button per row
func (b *Bot) SendChoices(_ context.Context, conversationID int64, text string, choices []model.Choice) (int, error) {
	msg := tgbotapi.NewMessage(conversationID, text)
	if len(choices) > 0 {
		msg.ReplyMarkup = choiceKeyboard(choices)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send choices: %w", err)
	}
	return sent.MessageID, nil
}

// SendLink sends a message with a single URL button
func (b *Bot) SendLink(_ context.Context, conversationID int64, text, label, url string) (int, error) {
	msg := tgbotapi.NewMessage(conversationID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, url)),
	)
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send link: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces a message's text. Without choices the inline keyboard
// is removed.
func (b *Bot) EditMessage(_ context.Context, conversationID int64, messageID int, text string, choices []model.Choice) error {
	var edit tgbotapi.EditMessageTextConfig
	if len(choices) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(conversationID, messageID, text, choiceKeyboard(choices))
	} else {
		edit = tgbotapi.NewEditMessageText(conversationID, messageID, text)
	}
	if _, err := b.api.Request(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// AnswerButton acknowledges a button press, optionally with a short notice
func (b *Bot) AnswerButton(_ context.Context, callbackID, notice string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, notice)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// Poll receives updates by long polling until ctx is done
func (b *Bot) Poll(ctx context.Context, h Handler) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(config)

	b.logger.Info("polling for updates")
	defer b.api.StopReceivingUpdates()
	return b.consume(ctx, h, updates)
}

// Listen consumes updates delivered to WebhookHandler until ctx is done
func (b *Bot) Listen(ctx context.Context, h Handler) error {
	b.logger.Info("listening for webhook updates")
	return b.consume(ctx, h, b.incoming)
}

// SetWebhook registers url with Telegram
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook switches Telegram back to getUpdates delivery
func (b *Bot) DeleteWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// WebhookHandler accepts update POSTs and queues them for Listen
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.logger.Warn("bad webhook payload", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		select {
		case b.incoming <- *update:
			w.WriteHeader(http.StatusOK)
		default:
			b.logger.Warn("webhook update dropped", "update_id", update.UpdateID, "error", ErrWebhookBusy)
			http.Error(w, ErrWebhookBusy.Error(), http.StatusServiceUnavailable)
		}
	})
}

// consume dispatches updates one at a time in arrival order
func (b *Bot) consume(ctx context.Context, h Handler, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, h, update)
		}
	}
}

// Dispatch converts one update into a flow event. Handler errors are logged;
// they never stop the update loop.
func (b *Bot) Dispatch(ctx context.Context, h Handler, update tgbotapi.Update) {
	var err error

	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		press := flow.ButtonPress{CallbackID: query.ID, Data: query.Data}
		if query.Message != nil {
			press.MessageID = query.Message.MessageID
			if query.Message.Chat != nil {
				press.ConversationID = query.Message.Chat.ID
			}
		}
		err = h.HandleButton(ctx, press)

	case update.Message != nil && update.Message.Text != "" && update.Message.Chat != nil:
		msg := flow.TextMessage{
			ConversationID: update.Message.Chat.ID,
			Text:           update.Message.Text,
		}
		if from := update.Message.From; from != nil {
			msg.UserID = from.ID
			msg.UserName = from.FirstName
		}
		err = h.HandleText(ctx, msg)

	default:
		return
	}

	if err != nil {
		b.logger.Error("update handling failed", "update_id", update.UpdateID, "error", err)
	}
}

func choiceKeyboard(choices []model.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, choice := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
