package decision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simaogato/checkflow-backend/internal/domain"
	"github.com/simaogato/checkflow-backend/internal/telemetry"
	"github.com/simaogato/checkflow-backend/internal/usecase/notify"
	"github.com/simaogato/checkflow-backend/internal/usecase/pending"
)

// Request is one tap on a decision prompt button
type Request struct {
	Payload   string // Button data: {action}:{recipientId}:{checkId}
	ActorID   int64  // Who tapped
	ChatID    int64  // Chat holding the prompt
	MessageID int    // The prompt message
}

// Outcome describes a completed decision
type Outcome struct {
	Check        *domain.Check
	Status       domain.CheckStatus
	LedgerSynced bool
}

// DecisionService runs the recipient's confirm/reject exchange
type DecisionService struct {
	Ledger    domain.LedgerRepository
	Registry  *pending.Registry
	Messenger domain.Messenger
	Notifier  *notify.FanOut
	Operators domain.OperatorSet
	Metrics   *telemetry.Metrics
	Logger    *zap.Logger
}

// NewDecisionService creates a new DecisionService instance
func NewDecisionService(
	ledger domain.LedgerRepository,
	registry *pending.Registry,
	messenger domain.Messenger,
	operators domain.OperatorSet,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *DecisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionService{
		Ledger:    ledger,
		Registry:  registry,
		Messenger: messenger,
		Notifier:  notify.NewFanOut(messenger, logger),
		Operators: operators,
		Metrics:   metrics,
		Logger:    logger,
	}
}

// Decide applies a decision to the pending check named in the payload.
//
// The check is claimed from the registry before anything else, so of two
// concurrent taps only one proceeds; the other gets ErrCheckNotFound and the
// ledger is never touched for it. A failed ledger update does not undo the
// transition: the recipient and the operators are told, with the failure flagged.
func (s *DecisionService) Decide(ctx context.Context, req Request) (*Outcome, error) {
	payload, err := domain.ParseDecisionPayload(req.Payload)
	if err != nil {
		return nil, err
	}

	target, err := payload.Action.TargetStatus()
	if err != nil {
		return nil, err
	}

	check, err := s.Registry.Claim(payload.CheckID, func(c *domain.Check) bool {
		return c.RecipientID() == payload.RecipientID && req.ActorID == payload.RecipientID
	})
	if err != nil {
		return nil, err
	}

	log := s.Logger.With(
		zap.String("check_id", check.ID.String()),
		zap.Int64("chat_id", req.ChatID),
	)

	if err := check.Resolve(target); err != nil {
		// Registry entries are always Pending, so this only guards the invariant
		log.Error("claimed check could not be resolved", zap.Error(err))
		return nil, err
	}

	synced := true
	if err := s.Ledger.UpdateStatus(ctx, check.ID, target); err != nil {
		synced = false
		s.Metrics.LedgerFailure(ctx, "update")
		log.Error("failed to update ledger status, manual reconciliation required",
			zap.String("status", string(target)),
			zap.Error(err))
	}

	if err := s.Messenger.ClearButtons(ctx, req.ChatID, req.MessageID); err != nil {
		log.Warn("failed to remove decision buttons", zap.Error(err))
	}

	if err := s.Messenger.Send(ctx, domain.Text(req.ChatID, recipientReply(target, synced))); err != nil {
		log.Warn("failed to confirm decision to recipient", zap.Error(err))
	}

	report := s.Notifier.Broadcast(ctx, s.Operators.IDs(), operatorReport(check, synced))
	if len(report.Failed) > 0 {
		log.Warn("some operators were not notified", zap.Int64s("failed", report.Failed))
	}

	s.Metrics.CheckDecided(ctx, string(target), synced)
	log.Info("check decided",
		zap.String("status", string(target)),
		zap.Bool("ledger_synced", synced))

	return &Outcome{Check: check, Status: target, LedgerSynced: synced}, nil
}

func recipientReply(status domain.CheckStatus, synced bool) string {
	text := "❌ Check rejected!"
	if status == domain.CheckStatusAccepted {
		text = "✅ Check confirmed!"
	}
	if !synced {
		text += "\n⚠️ The status could not be saved. Operators have been notified."
	}
	return text
}

func operatorReport(check *domain.Check, synced bool) domain.Message {
	status := "Rejected ❌"
	if check.Status == domain.CheckStatusAccepted {
		status = "Accepted ✅"
	}
	if !synced {
		status += "\n⚠️ Ledger sync failed, update the row manually (check " + check.ID.String() + ")"
	}

	amount1, amount2 := check.Draft.AmountTexts()
	return domain.Message{
		Text: fmt.Sprintf("📊 Check for @%s (%s)\nAmounts: %s/%s\nFull name: %s\nStatus: %s",
			check.Draft.Recipient.Handle,
			check.Draft.Date,
			amount1,
			amount2,
			check.Draft.FullName,
			status),
	}
}
