package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/simaogato/checkflow-backend/internal/domain"
	"github.com/simaogato/checkflow-backend/internal/usecase/decision"
	"github.com/simaogato/checkflow-backend/internal/usecase/directory"
	"github.com/simaogato/checkflow-backend/internal/usecase/issuance"
	"github.com/simaogato/checkflow-backend/internal/usecase/notify"
	"github.com/simaogato/checkflow-backend/internal/usecase/wizard"
)

const (
	CommandStart     = "start"
	CommandAddUser   = "add_user"
	CommandListUsers = "list_users"
	CommandSetNote   = "set_note"
	CommandCheck     = "check"
	CommandCancel    = "cancel"
)

// Dispatcher routes inbound chat events to the use cases.
// Every event is independent: failures are answered or logged, never fatal.
type Dispatcher struct {
	Directory *directory.DirectoryService
	Wizard    *wizard.Service
	Issuance  *issuance.IssuanceService
	Decisions *decision.DecisionService
	Messenger domain.Messenger
	Notifier  *notify.FanOut
	Operators domain.OperatorSet
	Logger    *zap.Logger
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(
	dir *directory.DirectoryService,
	wiz *wizard.Service,
	issue *issuance.IssuanceService,
	decisions *decision.DecisionService,
	messenger domain.Messenger,
	operators domain.OperatorSet,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Directory: dir,
		Wizard:    wiz,
		Issuance:  issue,
		Decisions: decisions,
		Messenger: messenger,
		Notifier:  notify.NewFanOut(messenger, logger),
		Operators: operators,
		Logger:    logger,
	}
}

// Dispatch handles one inbound event.
// The returned error only reports a reply that could not be delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) error {
	switch u.Kind {
	case KindCommand:
		return d.handleCommand(ctx, u)
	case KindText:
		return d.handleText(ctx, u)
	case KindCallback:
		return d.handleCallback(ctx, u)
	default:
		return nil
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, u Update) error {
	switch u.Command {
	case CommandStart:
		return d.start(ctx, u)
	case CommandCheck:
		return d.check(ctx, u)
	case CommandCancel:
		return d.cancel(ctx, u)
	case CommandAddUser, CommandListUsers, CommandSetNote:
		if !d.Operators.Contains(u.ActorID) {
			return d.reply(ctx, u.ChatID, replyForError(domain.ErrUnauthorized))
		}
	default:
		return nil
	}

	switch u.Command {
	case CommandAddUser:
		return d.addUser(ctx, u)
	case CommandListUsers:
		return d.listUsers(ctx, u)
	default:
		return d.setNote(ctx, u)
	}
}

func (d *Dispatcher) start(ctx context.Context, u Update) error {
	if u.Username != "" {
		if _, _, err := d.Directory.Register(ctx, u.Username, u.ActorID); err != nil {
			d.Logger.Error("failed to register user",
				zap.Int64("chat_id", u.ChatID),
				zap.String("username", u.Username),
				zap.Error(err))
		}
	}

	if !d.Operators.Contains(u.ActorID) {
		name := u.Username
		if name == "" {
			name = "not set"
		}
		d.Notifier.Broadcast(ctx, d.Operators.IDs(),
			domain.Message{Text: fmt.Sprintf("👤 New user: @%s (ID: %d)", name, u.ActorID)})
	}

	return d.reply(ctx, u.ChatID, "🌟 Welcome to the check management bot!\n"+
		"Use /check to create a new check.")
}

func (d *Dispatcher) check(ctx context.Context, u Update) error {
	effect, err := d.Wizard.Start(u.ActorID)
	if err != nil {
		return d.reply(ctx, u.ChatID, replyForError(err))
	}
	return d.sendEffect(ctx, u.ChatID, effect)
}

func (d *Dispatcher) cancel(ctx context.Context, u Update) error {
	effect, ok := d.Wizard.Cancel(u.ActorID)
	if !ok {
		return d.send(ctx, domain.Message{ChatID: u.ChatID, Text: "Nothing to cancel.", RemoveKeyboard: true})
	}
	return d.sendEffect(ctx, u.ChatID, effect)
}

func (d *Dispatcher) addUser(ctx context.Context, u Update) error {
	args := splitArgs(u.Args, 3)
	if len(args) < 2 {
		return d.reply(ctx, u.ChatID, "❌ Usage: /add_user <username> <user_id> [note]")
	}

	note := ""
	if len(args) > 2 {
		note = args[2]
	}

	recipient, err := d.Directory.AddUser(ctx, args[0], args[1], note)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) && strings.Contains(err.Error(), "user id") {
			return d.reply(ctx, u.ChatID, "❌ user_id must be a number!")
		}
		return d.reply(ctx, u.ChatID, replyForError(err))
	}

	return d.reply(ctx, u.ChatID, fmt.Sprintf("✅ User @%s (ID: %d) added! Note: %s",
		recipient.Handle, recipient.UserID, recipient.Note))
}

func (d *Dispatcher) listUsers(ctx context.Context, u Update) error {
	recipients, err := d.Directory.List(ctx)
	if err != nil {
		return d.reply(ctx, u.ChatID, replyForError(err))
	}
	if len(recipients) == 0 {
		return d.reply(ctx, u.ChatID, "📂 The user list is empty.")
	}

	var b strings.Builder
	b.WriteString("📋 Users:")
	for _, r := range recipients {
		note := r.Note
		if note == "" {
			note = "no note"
		}
		fmt.Fprintf(&b, "\n@%s -> %d | Note: %s", r.Handle, r.UserID, note)
	}

	return d.reply(ctx, u.ChatID, b.String())
}

func (d *Dispatcher) setNote(ctx context.Context, u Update) error {
	args := splitArgs(u.Args, 2)
	if len(args) < 2 {
		return d.reply(ctx, u.ChatID, "❌ Usage: /set_note <username> <note>")
	}

	recipient, err := d.Directory.SetNote(ctx, args[0], args[1])
	if errors.Is(err, domain.ErrRecipientNotFound) {
		return d.reply(ctx, u.ChatID, fmt.Sprintf("❌ User @%s not found!", domain.NormalizeHandle(args[0])))
	}
	if err != nil {
		return d.reply(ctx, u.ChatID, replyForError(err))
	}

	return d.reply(ctx, u.ChatID, fmt.Sprintf("✅ Note for @%s updated!", recipient.Handle))
}

func (d *Dispatcher) handleText(ctx context.Context, u Update) error {
	effect, ok := d.Wizard.Handle(ctx, u.ActorID, u.Text)
	if !ok {
		return nil
	}
	return d.sendEffect(ctx, u.ChatID, effect)
}

func (d *Dispatcher) handleCallback(ctx context.Context, u Update) error {
	switch {
	case wizard.IsPreviewPayload(u.Text):
		return d.previewDecision(ctx, u)
	case domain.IsDecisionPayload(u.Text):
		return d.decide(ctx, u)
	default:
		d.Logger.Debug("ignoring unknown callback",
			zap.Int64("chat_id", u.ChatID),
			zap.String("data", u.Text))
		return nil
	}
}

func (d *Dispatcher) previewDecision(ctx context.Context, u Update) error {
	effect, ok := d.Wizard.Press(u.ActorID, u.Text)
	if !ok {
		return d.edit(ctx, u, wizard.StalePreviewText)
	}

	switch effect.Kind {
	case wizard.EffectSend:
		return d.issue(ctx, u, effect)
	case wizard.EffectRedo:
		if err := d.edit(ctx, u, "🔄 Draft discarded."); err != nil {
			d.Logger.Warn("failed to update preview", zap.Int64("chat_id", u.ChatID), zap.Error(err))
		}
		return d.sendEffect(ctx, u.ChatID, effect)
	default:
		// The send in flight reports on this message itself
		if effect.State == wizard.Submitting {
			return nil
		}
		return d.edit(ctx, u, wizard.StalePreviewText)
	}
}

// issue creates the check and reports the result on the preview message.
// When nothing reached the ledger the draft is previewed again for a retry.
func (d *Dispatcher) issue(ctx context.Context, u Update, effect wizard.Effect) error {
	text := "✅ Check sent to the user!"
	check, err := d.Issuance.Issue(ctx, u.ActorID, *effect.Draft)
	if err != nil {
		text = issueReply(err)
	}

	next, ok := d.Wizard.Finish(u.ActorID, effect.PreviewID, check != nil)
	if err := d.edit(ctx, u, text); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return d.sendEffect(ctx, u.ChatID, next)
}

func (d *Dispatcher) decide(ctx context.Context, u Update) error {
	_, err := d.Decisions.Decide(ctx, decision.Request{
		Payload:   u.Text,
		ActorID:   u.ActorID,
		ChatID:    u.ChatID,
		MessageID: u.MessageID,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrCheckNotFound) {
			d.Logger.Warn("decision rejected",
				zap.Int64("chat_id", u.ChatID),
				zap.String("data", u.Text),
				zap.Error(err))
		}
		return d.reply(ctx, u.ChatID, replyForError(err))
	}
	return nil
}

func (d *Dispatcher) sendEffect(ctx context.Context, chatID int64, effect wizard.Effect) error {
	for _, msg := range effect.Messages {
		if err := d.send(ctx, msg.WithChat(chatID)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) edit(ctx context.Context, u Update, text string) error {
	if u.MessageID == 0 {
		return d.reply(ctx, u.ChatID, text)
	}
	return d.Messenger.EditText(ctx, u.ChatID, u.MessageID, text)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) error {
	return d.send(ctx, domain.Text(chatID, text))
}

func (d *Dispatcher) send(ctx context.Context, msg domain.Message) error {
	if err := d.Messenger.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to reply to chat %d: %w", msg.ChatID, err)
	}
	return nil
}

// replyForError maps a use case error to the text shown to the actor
func replyForError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "🚫 This command is available to operators only."
	case errors.Is(err, domain.ErrCheckNotFound):
		return "❌ Check expired or not found!"
	case errors.Is(err, domain.ErrRecipientNotFound):
		return "❌ User not found!"
	case errors.Is(err, domain.ErrLedgerSync):
		return "❌ Error saving the check!"
	case errors.Is(err, domain.ErrRecipientUnreachable):
		return "❌ User not found or chat is unavailable!"
	case errors.Is(err, domain.ErrInvalidInput):
		return "❌ Invalid input."
	default:
		return "❌ Something went wrong, try again."
	}
}

func issueReply(err error) string {
	if errors.Is(err, domain.ErrLedgerSync) ||
		errors.Is(err, domain.ErrRecipientUnreachable) ||
		errors.Is(err, domain.ErrInvalidInput) {
		return replyForError(err)
	}
	return "❌ Error sending the check!"
}
