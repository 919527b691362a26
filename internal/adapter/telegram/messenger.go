package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// BotAPI is the part of *tgbotapi.BotAPI used to talk to chats
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger implements domain.Messenger on the Bot API
type Messenger struct {
	api BotAPI
}

// NewMessenger creates a new Messenger instance
func NewMessenger(api BotAPI) *Messenger {
	return &Messenger{api: api}
}

// Send delivers msg with its inline buttons or reply keyboard
func (m *Messenger) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.Markdown {
		cfg.ParseMode = tgbotapi.ModeMarkdown
	}

	switch {
	case len(msg.Inline) > 0:
		cfg.ReplyMarkup = inlineMarkup(msg.Inline)
	case len(msg.Keyboard) > 0:
		cfg.ReplyMarkup = replyKeyboard(msg.Keyboard)
	case msg.RemoveKeyboard:
		cfg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}

	if _, err := m.api.Send(cfg); err != nil {
		return mapError(err)
	}
	return nil
}

// EditText replaces the text of a sent message; its inline buttons are dropped
func (m *Messenger) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := m.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return mapError(err)
	}
	return nil
}

// ClearButtons removes the inline buttons of a sent message
func (m *Messenger) ClearButtons(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if _, err := m.api.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)); err != nil {
		return mapError(err)
	}
	return nil
}

func inlineMarkup(rows [][]domain.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Payload))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	out := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		out = append(out, tgbotapi.NewKeyboardButtonRow(buttons...))
	}

	keyboard := tgbotapi.NewReplyKeyboard(out...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// mapError turns "chat not found" and "blocked by the user" API replies into
// ErrRecipientUnreachable
func mapError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: %s", domain.ErrRecipientUnreachable, apiErr.Message)
		}
	}
	return fmt.Errorf("bot api request failed: %w", err)
}
