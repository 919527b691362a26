package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DecisionAction is the recipient's choice on a decision prompt
type DecisionAction string

const (
	DecisionConfirm DecisionAction = "confirm"
	DecisionReject  DecisionAction = "reject"
)

// TargetStatus returns the terminal status the action leads to
func (a DecisionAction) TargetStatus() (CheckStatus, error) {
	switch a {
	case DecisionConfirm:
		return CheckStatusAccepted, nil
	case DecisionReject:
		return CheckStatusRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown decision action %q", ErrInvalidInput, a)
	}
}

// DecisionPayload is bound to one check and the recipient it was sent to.
// Wire form: {action}:{recipientId}:{checkId}
type DecisionPayload struct {
	Action      DecisionAction
	RecipientID int64
	CheckID     uuid.UUID
}

// NewDecisionPayload binds an action to a check and its embedded recipient identity
func NewDecisionPayload(action DecisionAction, check *Check) DecisionPayload {
	return DecisionPayload{
		Action:      action,
		RecipientID: check.RecipientID(),
		CheckID:     check.ID,
	}
}

// String encodes the payload for a button
func (p DecisionPayload) String() string {
	return fmt.Sprintf("%s:%d:%s", p.Action, p.RecipientID, p.CheckID)
}

// IsDecisionPayload reports whether data looks like a decision payload
func IsDecisionPayload(data string) bool {
	return strings.HasPrefix(data, string(DecisionConfirm)+":") ||
		strings.HasPrefix(data, string(DecisionReject)+":")
}

// ParseDecisionPayload decodes a button payload
func ParseDecisionPayload(data string) (DecisionPayload, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return DecisionPayload{}, fmt.Errorf("%w: malformed decision payload", ErrInvalidInput)
	}

	action := DecisionAction(parts[0])
	if _, err := action.TargetStatus(); err != nil {
		return DecisionPayload{}, err
	}

	recipientID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || recipientID <= 0 {
		return DecisionPayload{}, fmt.Errorf("%w: malformed recipient id in decision payload", ErrInvalidInput)
	}

	checkID, err := uuid.Parse(parts[2])
	if err != nil {
		return DecisionPayload{}, fmt.Errorf("%w: malformed check id in decision payload", ErrInvalidInput)
	}

	return DecisionPayload{
		Action:      action,
		RecipientID: recipientID,
		CheckID:     checkID,
	}, nil
}
