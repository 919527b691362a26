package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// MockBotAPI is a mock implementation of BotAPI for testing
type MockBotAPI struct {
	mock.Mock
}

func (m *MockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *MockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func sentConfig(t *testing.T, api *MockBotAPI) tgbotapi.MessageConfig {
	t.Helper()
	require.Len(t, api.Calls, 1)
	cfg, ok := api.Calls[0].Arguments.Get(0).(tgbotapi.MessageConfig)
	require.True(t, ok)
	return cfg
}

func TestSend_Markup(t *testing.T) {
	tests := []struct {
		name  string
		msg   domain.Message
		check func(t *testing.T, cfg tgbotapi.MessageConfig)
	}{
		{
			name: "Inline buttons with markdown",
			msg: domain.Message{
				ChatID:   42,
				Text:     "*preview*",
				Markdown: true,
				Inline:   [][]domain.Button{{{Label: "✅ Send", Payload: "send_check"}, {Label: "🔄 Redo", Payload: "redo_check"}}},
			},
			check: func(t *testing.T, cfg tgbotapi.MessageConfig) {
				assert.Equal(t, tgbotapi.ModeMarkdown, cfg.ParseMode)
				markup, ok := cfg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
				require.True(t, ok)
				require.Len(t, markup.InlineKeyboard, 1)
				require.Len(t, markup.InlineKeyboard[0], 2)
				assert.Equal(t, "✅ Send", markup.InlineKeyboard[0][0].Text)
				require.NotNil(t, markup.InlineKeyboard[0][1].CallbackData)
				assert.Equal(t, "redo_check", *markup.InlineKeyboard[0][1].CallbackData)
			},
		},
		{
			name: "Reply keyboard",
			msg:  domain.Message{ChatID: 42, Text: "date?", Keyboard: [][]string{{"📅 Today", "📝 Enter date"}, {"❌ Cancel"}}},
			check: func(t *testing.T, cfg tgbotapi.MessageConfig) {
				assert.Empty(t, cfg.ParseMode)
				markup, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
				require.True(t, ok)
				assert.True(t, markup.ResizeKeyboard)
				require.Len(t, markup.Keyboard, 2)
				assert.Equal(t, "📝 Enter date", markup.Keyboard[0][1].Text)
				assert.Equal(t, "❌ Cancel", markup.Keyboard[1][0].Text)
			},
		},
		{
			name: "Remove keyboard",
			msg:  domain.Message{ChatID: 42, Text: "cancelled", RemoveKeyboard: true},
			check: func(t *testing.T, cfg tgbotapi.MessageConfig) {
				markup, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
				require.True(t, ok)
				assert.True(t, markup.RemoveKeyboard)
			},
		},
		{
			name: "Plain text",
			msg:  domain.Text(42, "hello"),
			check: func(t *testing.T, cfg tgbotapi.MessageConfig) {
				assert.Nil(t, cfg.ReplyMarkup)
				assert.Equal(t, "hello", cfg.Text)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBotAPI)
			api.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil)

			require.NoError(t, NewMessenger(api).Send(context.Background(), tt.msg))

			cfg := sentConfig(t, api)
			assert.Equal(t, int64(42), cfg.ChatID)
			tt.check(t, cfg)
		})
	}
}

func TestSend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnreachable bool
	}{
		{name: "Chat not found", err: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, wantUnreachable: true},
		{name: "Blocked by user", err: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, wantUnreachable: true},
		{name: "Rate limited", err: &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}},
		{name: "Network", err: errors.New("dial tcp: i/o timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBotAPI)
			api.On("Send", mock.Anything).Return(tgbotapi.Message{}, tt.err)

			err := NewMessenger(api).Send(context.Background(), domain.Text(42, "hi"))

			require.Error(t, err)
			assert.Equal(t, tt.wantUnreachable, errors.Is(err, domain.ErrRecipientUnreachable))
		})
	}
}

func TestSend_CancelledContext(t *testing.T) {
	api := new(MockBotAPI)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMessenger(api).Send(ctx, domain.Text(42, "hi"))

	assert.ErrorIs(t, err, context.Canceled)
	api.AssertNotCalled(t, "Send", mock.Anything)
}

func TestEditTextAndClearButtons(t *testing.T) {
	api := new(MockBotAPI)
	api.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	messenger := NewMessenger(api)

	require.NoError(t, messenger.EditText(context.Background(), 42, 7, "✅ Check sent to the user!"))
	require.NoError(t, messenger.ClearButtons(context.Background(), 42, 8))

	require.Len(t, api.Calls, 2)

	edit, ok := api.Calls[0].Arguments.Get(0).(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), edit.ChatID)
	assert.Equal(t, 7, edit.MessageID)
	assert.Equal(t, "✅ Check sent to the user!", edit.Text)
	assert.Nil(t, edit.ReplyMarkup)

	markup, ok := api.Calls[1].Arguments.Get(0).(tgbotapi.EditMessageReplyMarkupConfig)
	require.True(t, ok)
	assert.Equal(t, 8, markup.MessageID)
	require.NotNil(t, markup.ReplyMarkup)
	assert.Empty(t, markup.ReplyMarkup.InlineKeyboard)
}
