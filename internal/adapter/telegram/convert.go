package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/simaogato/checkflow-backend/internal/usecase/dispatcher"
)

// ToUpdate converts a Bot API update; false means the update carries nothing to handle
func ToUpdate(upd tgbotapi.Update) (dispatcher.Update, bool) {
	if cb := upd.CallbackQuery; cb != nil {
		if cb.From == nil {
			return dispatcher.Update{}, false
		}

		u := dispatcher.Update{
			Kind:       dispatcher.KindCallback,
			ActorID:    cb.From.ID,
			Username:   cb.From.UserName,
			ChatID:     cb.From.ID,
			Text:       cb.Data,
			CallbackID: cb.ID,
		}
		if cb.Message != nil {
			u.MessageID = cb.Message.MessageID
			if cb.Message.Chat != nil {
				u.ChatID = cb.Message.Chat.ID
			}
		}
		return u, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return dispatcher.Update{}, false
	}

	u := dispatcher.Update{
		ActorID:   msg.From.ID,
		Username:  msg.From.UserName,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}

	if msg.IsCommand() {
		u.Kind = dispatcher.KindCommand
		u.Command = msg.Command()
		u.Args = msg.CommandArguments()
		return u, true
	}

	if msg.Text == "" {
		return dispatcher.Update{}, false
	}
	u.Kind = dispatcher.KindText
	u.Text = msg.Text
	return u, true
}
