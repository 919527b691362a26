package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// Resolver finds the directory record an operator meant by a free-text token
type Resolver interface {
	Resolve(ctx context.Context, token string) (*domain.Recipient, domain.MatchKind, error)
}

// Effect is the outcome of one wizard step.
// Messages carry no chat id; the caller addresses them to the operator's chat.
type Effect struct {
	Kind      EffectKind
	State     State // State after the step
	Messages  []domain.Message
	Draft     *domain.CheckDraft // Set for EffectPreview and EffectSend
	PreviewID string             // Set for EffectPreview and EffectSend
	Err       error              // Set for EffectInvalid
}

// Session is one operator's in-progress check.
// It is not safe for concurrent use; Service serializes steps per operator.
type Session struct {
	state     State
	draft     domain.CheckDraft
	previewID string // Id carried by the buttons of the live preview

	resolver Resolver
	now      func() time.Time
}

// NewSession starts a session waiting for the recipient
func NewSession(resolver Resolver, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		state:    AwaitingRecipient,
		resolver: resolver,
		now:      now,
	}
}

// State returns the current step
func (s *Session) State() State {
	return s.state
}

// Draft returns a copy of the fields collected so far
func (s *Session) Draft() domain.CheckDraft {
	draft := s.draft
	if draft.Recipient != nil {
		recipient := *draft.Recipient
		draft.Recipient = &recipient
	}
	return draft
}

// StartEffect is the prompt shown when a session begins
func (s *Session) StartEffect() Effect {
	return s.prompt(recipientPrompt())
}

// Step applies one typed operator input and returns what to show next.
// Cancel is honored in every state before any validation.
// Button presses go through Press, never Step.
func (s *Session) Step(ctx context.Context, input string) Effect {
	if IsCancel(input) {
		s.reset()
		return Effect{
			Kind:     EffectCancelled,
			State:    s.state,
			Messages: []domain.Message{{Text: "❌ Check creation cancelled.", RemoveKeyboard: true}},
		}
	}

	switch s.state {
	case AwaitingRecipient:
		return s.stepRecipient(ctx, input)
	case AwaitingDate:
		return s.stepDate(input)
	case AwaitingAmount1:
		return s.stepAmount(input, &s.draft.Amount1, &s.draft.Amount1Text, AwaitingAmount2, amountPrompt(2))
	case AwaitingAmount2:
		return s.stepAmount(input, &s.draft.Amount2, &s.draft.Amount2Text, AwaitingFullName, domain.Message{
			Text:     "📛 Enter the recipient's full name:",
			Keyboard: cancelKeyboard(),
		})
	case AwaitingFullName:
		return s.stepFullName(input)
	case AwaitingPreviewDecision:
		return s.invalid(fmt.Errorf("%w: waiting for send or redo", domain.ErrInvalidInput),
			"👆 Use the buttons under the preview to send or redo the check.")
	case Submitting:
		return s.invalid(fmt.Errorf("%w: check is being sent", domain.ErrInvalidInput),
			"⏳ The check is being sent, please wait.")
	default:
		return s.invalid(fmt.Errorf("%w: no check in progress", domain.ErrInvalidInput),
			"Use /check to create a new check.")
	}
}

func (s *Session) stepRecipient(ctx context.Context, input string) Effect {
	recipient, match, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrRecipientNotFound) {
			return s.invalid(err, "❌ User not found! Check the details you entered.")
		}
		return s.invalid(err, "❌ The user directory is unavailable, try again.")
	}

	s.draft.RecipientToken = input
	s.draft.Recipient = recipient
	s.state = AwaitingDate

	return s.prompt(
		domain.Message{Text: fmt.Sprintf("✅ Found user by %s: @%s", matchLabel(match), recipient.Handle)},
		datePrompt(),
	)
}

func (s *Session) stepDate(input string) Effect {
	switch input {
	case TodayInput:
		s.draft.Date = domain.FormatCheckDate(s.now())
	case ManualDateInput:
		return s.prompt(domain.Message{
			Text:     "📝 Enter the date as DD.MM.YYYY:",
			Keyboard: cancelKeyboard(),
		})
	default:
		value := strings.TrimSpace(input)
		if _, err := domain.ParseCheckDate(value); err != nil {
			return s.invalid(err, "❌ Invalid format! Use DD.MM.YYYY")
		}
		s.draft.Date = value
	}

	s.state = AwaitingAmount1
	return s.prompt(amountPrompt(1))
}

func (s *Session) stepAmount(input string, field *decimal.Decimal, typed *string, next State, nextPrompt domain.Message) Effect {
	amount, err := domain.ParseAmount(input)
	if err != nil {
		return s.invalid(err, "❌ The amount must be a number!")
	}

	*field = amount
	*typed = input
	s.state = next
	return s.prompt(nextPrompt)
}

func (s *Session) stepFullName(input string) Effect {
	name := strings.TrimSpace(input)
	if name == "" {
		return s.invalid(fmt.Errorf("%w: full name cannot be empty", domain.ErrInvalidInput),
			"❌ The full name cannot be empty!")
	}

	s.draft.FullName = name
	return s.preview()
}

// preview shows the draft under a fresh preview id, so buttons of any
// earlier preview stop matching
func (s *Session) preview() Effect {
	s.state = AwaitingPreviewDecision
	s.previewID = uuid.NewString()

	draft := s.Draft()
	return Effect{
		Kind:      EffectPreview,
		State:     s.state,
		Messages:  []domain.Message{RenderPreview(draft, s.previewID)},
		Draft:     &draft,
		PreviewID: s.previewID,
	}
}

// Press applies a preview button. Buttons of any preview other than the
// live one are rejected without changing the session.
func (s *Session) Press(data string) Effect {
	action, previewID, ok := ParsePreviewPayload(data)
	if !ok || s.state != AwaitingPreviewDecision || previewID != s.previewID {
		return s.invalid(fmt.Errorf("%w: preview is no longer active", domain.ErrInvalidInput),
			StalePreviewText)
	}

	if action == SendCheckPayload {
		s.state = Submitting
		draft := s.Draft()
		return Effect{Kind: EffectSend, State: s.state, Draft: &draft, PreviewID: s.previewID}
	}

	s.reset()
	return Effect{
		Kind:  EffectRedo,
		State: s.state,
		Messages: []domain.Message{{
			Text:           "🔄 Draft discarded. Use /check to start over.",
			RemoveKeyboard: true,
		}},
	}
}

// Finish closes the send started by Press for previewID.
// An issued check ends the session. Otherwise the same draft is previewed
// again so the operator can retry. Returns false if the session moved on.
func (s *Session) Finish(previewID string, issued bool) (Effect, bool) {
	if s.state != Submitting || previewID != s.previewID {
		return Effect{}, false
	}

	if issued {
		s.reset()
		return Effect{Kind: EffectSend, State: s.state}, true
	}

	return s.preview(), true
}

func (s *Session) reset() {
	s.state = Idle
	s.draft = domain.CheckDraft{}
	s.previewID = ""
}

func (s *Session) prompt(msgs ...domain.Message) Effect {
	return Effect{Kind: EffectPrompt, State: s.state, Messages: msgs}
}

func (s *Session) invalid(err error, text string) Effect {
	return Effect{
		Kind:     EffectInvalid,
		State:    s.state,
		Messages: []domain.Message{{Text: text}},
		Err:      err,
	}
}

// StalePreviewText answers a press on a preview that is no longer live
const StalePreviewText = "⌛ This preview is no longer active."

// RenderPreview formats a complete draft with send and redo buttons bound to previewID
func RenderPreview(draft domain.CheckDraft, previewID string) domain.Message {
	handle := ""
	if draft.Recipient != nil {
		handle = draft.Recipient.Handle
	}
	amount1, amount2 := draft.AmountTexts()

	text := "📋 *Check preview*\n" +
		"👤: @" + escapeMarkdown(handle) + "\n" +
		"📅 Date: " + draft.Date + "\n" +
		"💰 Amount 1: " + amount1 + "\n" +
		"💰 Amount 2: " + amount2 + "\n" +
		"📛 Full name: " + escapeMarkdown(draft.FullName)

	return domain.Message{
		Text:     text,
		Markdown: true,
		Inline: [][]domain.Button{{
			{Label: "✅ Send", Payload: PreviewPayload(SendCheckPayload, previewID)},
			{Label: "🔄 Redo", Payload: PreviewPayload(RedoCheckPayload, previewID)},
		}},
	}
}

func recipientPrompt() domain.Message {
	return domain.Message{
		Text:     "👤 Enter the recipient's handle *without @*, a note or a user id:",
		Markdown: true,
		Keyboard: cancelKeyboard(),
	}
}

func datePrompt() domain.Message {
	return domain.Message{
		Text: "📅 Choose the check date:",
		Keyboard: [][]string{
			{TodayInput, ManualDateInput},
			{CancelInput},
		},
	}
}

func amountPrompt(n int) domain.Message {
	return domain.Message{
		Text:     fmt.Sprintf("💰 Enter amount %d:", n),
		Keyboard: cancelKeyboard(),
	}
}

func cancelKeyboard() [][]string {
	return [][]string{{CancelInput}}
}

func matchLabel(kind domain.MatchKind) string {
	switch kind {
	case domain.MatchByUserID:
		return "user id"
	case domain.MatchByNote:
		return "note"
	default:
		return "handle"
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
