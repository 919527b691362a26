package wizard

import "strings"

// State is a step of the check wizard
type State int

const (
	Idle State = iota
	AwaitingRecipient
	AwaitingDate
	AwaitingAmount1
	AwaitingAmount2
	AwaitingFullName
	AwaitingPreviewDecision
	// Submitting holds the confirmed draft while the check is being issued
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingRecipient:
		return "AwaitingRecipient"
	case AwaitingDate:
		return "AwaitingDate"
	case AwaitingAmount1:
		return "AwaitingAmount1"
	case AwaitingAmount2:
		return "AwaitingAmount2"
	case AwaitingFullName:
		return "AwaitingFullName"
	case AwaitingPreviewDecision:
		return "AwaitingPreviewDecision"
	case Submitting:
		return "Submitting"
	default:
		return "Unknown"
	}
}

// EffectKind tells the caller what a step produced
type EffectKind int

const (
	// EffectPrompt means the step was accepted and the next question is attached
	EffectPrompt EffectKind = iota
	// EffectInvalid means the input was rejected and the state did not change
	EffectInvalid
	// EffectCancelled means the session was discarded
	EffectCancelled
	// EffectPreview means the draft is complete and waits for send or redo
	EffectPreview
	// EffectSend means the operator confirmed the preview; Effect.Draft is final.
	// The session stays in Submitting until Finish reports the outcome.
	EffectSend
	// EffectRedo means the draft was discarded from the preview
	EffectRedo
)

func (k EffectKind) String() string {
	switch k {
	case EffectPrompt:
		return "Prompt"
	case EffectInvalid:
		return "Invalid"
	case EffectCancelled:
		return "Cancelled"
	case EffectPreview:
		return "Preview"
	case EffectSend:
		return "Send"
	case EffectRedo:
		return "Redo"
	default:
		return "Unknown"
	}
}

// Sentinel inputs recognized by the wizard
const (
	CancelInput      = "❌ Cancel"
	CancelCommand    = "/cancel"
	TodayInput       = "📅 Today"
	ManualDateInput  = "📝 Enter date"
	SendCheckPayload = "send_check"
	RedoCheckPayload = "redo_check"
)

// IsCancel reports whether input aborts the wizard
func IsCancel(input string) bool {
	return input == CancelInput || input == CancelCommand
}

// PreviewPayload builds the button data of action for one rendered preview
func PreviewPayload(action, previewID string) string {
	return action + ":" + previewID
}

// ParsePreviewPayload splits preview button data into its action and preview id.
// Data without an id still parses, but never matches a live preview.
func ParsePreviewPayload(data string) (action, previewID string, ok bool) {
	action, previewID, _ = strings.Cut(data, ":")
	if action != SendCheckPayload && action != RedoCheckPayload {
		return "", "", false
	}
	return action, previewID, true
}

// IsPreviewPayload reports whether data is one of the preview buttons
func IsPreviewPayload(data string) bool {
	_, _, ok := ParsePreviewPayload(data)
	return ok
}
