package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// MockResolver is a mock implementation of Resolver for testing
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, token string) (*domain.Recipient, domain.MatchKind, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Recipient), args.Get(1).(domain.MatchKind), args.Error(2)
}

var (
	alice    = &domain.Recipient{Handle: "alice", UserID: 42, Note: "accounting"}
	fixedNow = func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) }
)

func aliceResolver() *MockResolver {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "alice").Return(alice, domain.MatchByHandle, nil)
	return resolver
}

// advance feeds inputs and fails the test on any rejected step
func advance(t *testing.T, session *Session, inputs ...string) Effect {
	t.Helper()

	var effect Effect
	for _, input := range inputs {
		effect = session.Step(context.Background(), input)
		require.NotEqual(t, EffectInvalid, effect.Kind, "input %q was rejected: %v", input, effect.Err)
	}
	return effect
}

func TestSession_HappyPath(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	assert.Equal(t, AwaitingRecipient, session.State())

	preview := advance(t, session, "alice", TodayInput, "100", "200", "Alice Smith")
	assert.Equal(t, EffectPreview, preview.Kind)
	assert.Equal(t, AwaitingPreviewDecision, preview.State)
	require.Len(t, preview.Messages, 1)
	assert.True(t, preview.Messages[0].Markdown)
	assert.Contains(t, preview.Messages[0].Text, "05.03.2024")
	require.NotEmpty(t, preview.PreviewID)
	assert.Equal(t, PreviewPayload(SendCheckPayload, preview.PreviewID), preview.Messages[0].Inline[0][0].Payload)
	assert.Equal(t, PreviewPayload(RedoCheckPayload, preview.PreviewID), preview.Messages[0].Inline[0][1].Payload)

	sent := session.Press(preview.Messages[0].Inline[0][0].Payload)
	assert.Equal(t, EffectSend, sent.Kind)
	assert.Equal(t, Submitting, sent.State)
	assert.Equal(t, preview.PreviewID, sent.PreviewID)
	require.NotNil(t, sent.Draft)

	assert.Equal(t, "alice", sent.Draft.RecipientToken)
	assert.Equal(t, int64(42), sent.Draft.Recipient.UserID)
	assert.Equal(t, "05.03.2024", sent.Draft.Date)
	assert.True(t, decimal.NewFromInt(100).Equal(sent.Draft.Amount1))
	assert.True(t, decimal.NewFromInt(200).Equal(sent.Draft.Amount2))
	assert.Equal(t, "Alice Smith", sent.Draft.FullName)
	assert.NoError(t, sent.Draft.Validate())

	done, ok := session.Finish(sent.PreviewID, true)
	require.True(t, ok)
	assert.Equal(t, Idle, done.State)
	assert.Equal(t, domain.CheckDraft{}, session.Draft(), "an issued check must clear the session")
}

func TestSession_CancelFromEveryState(t *testing.T) {
	prefixes := map[State][]string{
		AwaitingRecipient:       {},
		AwaitingDate:            {"alice"},
		AwaitingAmount1:         {"alice", TodayInput},
		AwaitingAmount2:         {"alice", TodayInput, "1"},
		AwaitingFullName:        {"alice", TodayInput, "1", "2"},
		AwaitingPreviewDecision: {"alice", TodayInput, "1", "2", "Bob"},
	}

	for state, prefix := range prefixes {
		for _, cancel := range []string{CancelInput, CancelCommand} {
			t.Run(state.String()+" "+cancel, func(t *testing.T) {
				session := NewSession(aliceResolver(), fixedNow)
				advance(t, session, prefix...)
				require.Equal(t, state, session.State())

				effect := session.Step(context.Background(), cancel)

				assert.Equal(t, EffectCancelled, effect.Kind)
				assert.Equal(t, Idle, effect.State)
				assert.Equal(t, Idle, session.State())
				assert.Equal(t, domain.CheckDraft{}, session.Draft())
				require.Len(t, effect.Messages, 1)
				assert.True(t, effect.Messages[0].RemoveKeyboard)
			})
		}
	}
}

func TestSession_CancelIsCheckedBeforeValidation(t *testing.T) {
	resolver := new(MockResolver)
	session := NewSession(resolver, fixedNow)

	effect := session.Step(context.Background(), CancelInput)

	assert.Equal(t, EffectCancelled, effect.Kind)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestSession_InvalidInputKeepsState(t *testing.T) {
	tests := []struct {
		name   string
		prefix []string
		input  string
		state  State
		reply  string
	}{
		{name: "Unknown recipient", prefix: nil, input: "zed", state: AwaitingRecipient, reply: "User not found"},
		{name: "Malformed date", prefix: []string{"alice"}, input: "2024-03-05", state: AwaitingDate, reply: "DD.MM.YYYY"},
		{name: "Impossible date", prefix: []string{"alice"}, input: "31.02.2024", state: AwaitingDate, reply: "DD.MM.YYYY"},
		{name: "Letters in amount 1", prefix: []string{"alice", TodayInput}, input: "12a", state: AwaitingAmount1, reply: "number"},
		{name: "Negative amount 2", prefix: []string{"alice", TodayInput, "1"}, input: "-5", state: AwaitingAmount2, reply: "number"},
		{name: "Decimal amount 2", prefix: []string{"alice", TodayInput, "1"}, input: "1.5", state: AwaitingAmount2, reply: "number"},
		{name: "Blank full name", prefix: []string{"alice", TodayInput, "1", "2"}, input: "   ", state: AwaitingFullName, reply: "cannot be empty"},
		{name: "Text instead of preview button", prefix: []string{"alice", TodayInput, "1", "2", "Bob"}, input: "ok", state: AwaitingPreviewDecision, reply: "buttons"},
		{name: "Typed send payload at preview", prefix: []string{"alice", TodayInput, "1", "2", "Bob"}, input: SendCheckPayload, state: AwaitingPreviewDecision, reply: "buttons"},
		{name: "Typed redo payload at preview", prefix: []string{"alice", TodayInput, "1", "2", "Bob"}, input: RedoCheckPayload, state: AwaitingPreviewDecision, reply: "buttons"},
		{name: "Typed send payload mid wizard", prefix: []string{"alice"}, input: SendCheckPayload, state: AwaitingDate, reply: "DD.MM.YYYY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := aliceResolver()
			resolver.On("Resolve", mock.Anything, "zed").Return(nil, domain.MatchKind(""), domain.ErrRecipientNotFound)
			session := NewSession(resolver, fixedNow)
			advance(t, session, tt.prefix...)
			before := session.Draft()

			effect := session.Step(context.Background(), tt.input)

			assert.Equal(t, EffectInvalid, effect.Kind)
			assert.Equal(t, tt.state, effect.State)
			assert.Equal(t, tt.state, session.State())
			assert.Equal(t, before, session.Draft())
			require.Len(t, effect.Messages, 1)
			assert.Contains(t, effect.Messages[0].Text, tt.reply)
			assert.Error(t, effect.Err)
		})
	}
}

func TestSession_RecipientAcknowledgesMatchKind(t *testing.T) {
	tests := []struct {
		kind domain.MatchKind
		want string
	}{
		{kind: domain.MatchByHandle, want: "Found user by handle: @alice"},
		{kind: domain.MatchByUserID, want: "Found user by user id: @alice"},
		{kind: domain.MatchByNote, want: "Found user by note: @alice"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			resolver := new(MockResolver)
			resolver.On("Resolve", mock.Anything, "token").Return(alice, tt.kind, nil)
			session := NewSession(resolver, fixedNow)

			effect := session.Step(context.Background(), "token")

			assert.Equal(t, EffectPrompt, effect.Kind)
			assert.Equal(t, AwaitingDate, effect.State)
			require.Len(t, effect.Messages, 2)
			assert.Contains(t, effect.Messages[0].Text, tt.want)
			assert.Equal(t, [][]string{{TodayInput, ManualDateInput}, {CancelInput}}, effect.Messages[1].Keyboard)
		})
	}
}

func TestSession_DirectoryFailureKeepsState(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "alice").Return(nil, domain.MatchKind(""), errors.New("connection refused"))
	session := NewSession(resolver, fixedNow)

	effect := session.Step(context.Background(), "alice")

	assert.Equal(t, EffectInvalid, effect.Kind)
	assert.Equal(t, AwaitingRecipient, session.State())
	assert.Contains(t, effect.Messages[0].Text, "unavailable")
}

func TestSession_DateInputs(t *testing.T) {
	t.Run("Manual date hint re-prompts", func(t *testing.T) {
		session := NewSession(aliceResolver(), fixedNow)
		advance(t, session, "alice")

		effect := session.Step(context.Background(), ManualDateInput)

		assert.Equal(t, EffectPrompt, effect.Kind)
		assert.Equal(t, AwaitingDate, session.State())
		assert.Empty(t, session.Draft().Date)
	})

	t.Run("Literal date is kept", func(t *testing.T) {
		session := NewSession(aliceResolver(), fixedNow)
		advance(t, session, "alice", ManualDateInput, "29.02.2024")

		assert.Equal(t, AwaitingAmount1, session.State())
		assert.Equal(t, "29.02.2024", session.Draft().Date)
	})
}

func TestSession_Redo(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "1", "2", "Bob")

	effect := session.Press(PreviewPayload(RedoCheckPayload, preview.PreviewID))

	assert.Equal(t, EffectRedo, effect.Kind)
	assert.Equal(t, Idle, effect.State)
	assert.Nil(t, effect.Draft)
	assert.Equal(t, domain.CheckDraft{}, session.Draft())
}

func TestSession_TypedLivePayloadIsNotAPress(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "1", "2", "Bob")

	effect := session.Step(context.Background(), PreviewPayload(SendCheckPayload, preview.PreviewID))

	assert.Equal(t, EffectInvalid, effect.Kind)
	assert.Nil(t, effect.Draft)
	assert.Equal(t, AwaitingPreviewDecision, session.State())
	assert.Contains(t, effect.Messages[0].Text, "buttons")
}

func TestSession_StalePress(t *testing.T) {
	tests := []struct {
		name   string
		prefix []string
		data   func(live string) string
		state  State
	}{
		{
			name:   "Send outside the preview",
			prefix: []string{"alice"},
			data:   func(string) string { return PreviewPayload(SendCheckPayload, "old") },
			state:  AwaitingDate,
		},
		{
			name:   "Send from an older preview",
			prefix: []string{"alice", TodayInput, "1", "2", "Bob"},
			data:   func(string) string { return PreviewPayload(SendCheckPayload, "old") },
			state:  AwaitingPreviewDecision,
		},
		{
			name:   "Redo from an older preview",
			prefix: []string{"alice", TodayInput, "1", "2", "Bob"},
			data:   func(string) string { return PreviewPayload(RedoCheckPayload, "old") },
			state:  AwaitingPreviewDecision,
		},
		{
			name:   "Send without a preview id",
			prefix: []string{"alice", TodayInput, "1", "2", "Bob"},
			data:   func(string) string { return SendCheckPayload },
			state:  AwaitingPreviewDecision,
		},
		{
			name:   "Unknown action with the live id",
			prefix: []string{"alice", TodayInput, "1", "2", "Bob"},
			data:   func(live string) string { return "drop_check:" + live },
			state:  AwaitingPreviewDecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession(aliceResolver(), fixedNow)
			live := advance(t, session, tt.prefix...).PreviewID
			before := session.Draft()

			effect := session.Press(tt.data(live))

			assert.Equal(t, EffectInvalid, effect.Kind)
			assert.Nil(t, effect.Draft)
			assert.Equal(t, tt.state, session.State())
			assert.Equal(t, before, session.Draft())
			assert.Equal(t, StalePreviewText, effect.Messages[0].Text)
		})
	}
}

func TestSession_SecondPressWhileSubmitting(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "1", "2", "Bob")
	send := PreviewPayload(SendCheckPayload, preview.PreviewID)
	require.Equal(t, EffectSend, session.Press(send).Kind)

	again := session.Press(send)

	assert.Equal(t, EffectInvalid, again.Kind)
	assert.Equal(t, Submitting, again.State)
	assert.Nil(t, again.Draft)
}

func TestSession_FailedSendKeepsDraft(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "007", "2", "Bob")
	sent := session.Press(PreviewPayload(SendCheckPayload, preview.PreviewID))
	require.Equal(t, EffectSend, sent.Kind)

	retry, ok := session.Finish(sent.PreviewID, false)

	require.True(t, ok)
	assert.Equal(t, EffectPreview, retry.Kind)
	assert.Equal(t, AwaitingPreviewDecision, session.State())
	assert.NotEqual(t, preview.PreviewID, retry.PreviewID)
	assert.Equal(t, *sent.Draft, session.Draft())
	assert.Equal(t, "007", session.Draft().Amount1Text)
	require.Len(t, retry.Messages, 1)
	assert.Contains(t, retry.Messages[0].Text, "Amount 1: 007")

	// Only the retry preview's buttons are live
	stale := session.Press(PreviewPayload(SendCheckPayload, preview.PreviewID))
	assert.Equal(t, EffectInvalid, stale.Kind)

	resent := session.Press(retry.Messages[0].Inline[0][0].Payload)
	assert.Equal(t, EffectSend, resent.Kind)
	assert.Equal(t, *sent.Draft, *resent.Draft)
}

func TestSession_FinishIgnoresOtherPreviews(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "1", "2", "Bob")

	_, ok := session.Finish(preview.PreviewID, true)
	assert.False(t, ok, "nothing was submitted")

	session.Press(PreviewPayload(SendCheckPayload, preview.PreviewID))
	_, ok = session.Finish("other", true)
	assert.False(t, ok)
	assert.Equal(t, Submitting, session.State())
}

func TestSession_CancelWhileSubmitting(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "1", "2", "Bob")
	sent := session.Press(PreviewPayload(SendCheckPayload, preview.PreviewID))

	effect := session.Step(context.Background(), CancelInput)

	assert.Equal(t, EffectCancelled, effect.Kind)
	_, ok := session.Finish(sent.PreviewID, false)
	assert.False(t, ok)
	assert.Equal(t, Idle, session.State())
}

func TestPreviewPayload_Parse(t *testing.T) {
	tests := []struct {
		data   string
		action string
		id     string
		ok     bool
	}{
		{data: PreviewPayload(SendCheckPayload, "abc"), action: SendCheckPayload, id: "abc", ok: true},
		{data: PreviewPayload(RedoCheckPayload, "abc"), action: RedoCheckPayload, id: "abc", ok: true},
		{data: SendCheckPayload, action: SendCheckPayload, id: "", ok: true},
		{data: "confirm:42:abc", ok: false},
		{data: "send_checks:abc", ok: false},
		{data: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, id, ok := ParsePreviewPayload(tt.data)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.ok, IsPreviewPayload(tt.data))
		})
	}
}

func TestPreviewPayload_FitsCallbackData(t *testing.T) {
	session := NewSession(aliceResolver(), fixedNow)
	preview := advance(t, session, "alice", TodayInput, "1", "2", "Bob")

	for _, button := range preview.Messages[0].Inline[0] {
		assert.LessOrEqual(t, len(button.Payload), 64)
	}
}

func TestRenderPreview_EscapesMarkdown(t *testing.T) {
	draft := domain.CheckDraft{
		Recipient: &domain.Recipient{Handle: "john_doe", UserID: 1},
		Date:      "01.01.2024",
		Amount1:   decimal.NewFromInt(7),
		Amount2:   decimal.Zero,
		FullName:  "John *Bold* Doe",
	}

	msg := RenderPreview(draft, "p1")

	assert.Contains(t, msg.Text, "@john\\_doe")
	assert.Contains(t, msg.Text, "John \\*Bold\\* Doe")
	assert.Contains(t, msg.Text, "Amount 1: 7")
	assert.Contains(t, msg.Text, "Amount 2: 0")
	assert.Equal(t, "send_check:p1", msg.Inline[0][0].Payload)
	assert.Equal(t, "redo_check:p1", msg.Inline[0][1].Payload)
}
