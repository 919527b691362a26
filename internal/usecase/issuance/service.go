package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/checkflow-backend/internal/domain"
	"github.com/simaogato/checkflow-backend/internal/telemetry"
	"github.com/simaogato/checkflow-backend/internal/usecase/pending"
)

// IssuanceService turns a confirmed draft into a pending check:
// ledger first, then the registry, then the recipient's decision prompt.
type IssuanceService struct {
	Ledger    domain.LedgerRepository
	Registry  *pending.Registry
	Messenger domain.Messenger
	Metrics   *telemetry.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewIssuanceService creates a new IssuanceService instance
func NewIssuanceService(
	ledger domain.LedgerRepository,
	registry *pending.Registry,
	messenger domain.Messenger,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *IssuanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuanceService{
		Ledger:    ledger,
		Registry:  registry,
		Messenger: messenger,
		Metrics:   metrics,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Issue finalizes draft on behalf of issuerID.
//
// A ledger failure returns ErrLedgerSync and nothing is registered.
// A delivery failure returns the registered check together with the error;
// the check stays Pending in the ledger and the registry.
// A nil check means nothing reached the ledger.
func (s *IssuanceService) Issue(ctx context.Context, issuerID int64, draft domain.CheckDraft) (*domain.Check, error) {
	check, err := domain.NewCheck(issuerID, draft, s.Now())
	if err != nil {
		return nil, err
	}

	log := s.Logger.With(
		zap.String("check_id", check.ID.String()),
		zap.Int64("operator_id", issuerID),
	)

	if err := s.Ledger.AppendPending(ctx, check); err != nil {
		s.Metrics.LedgerFailure(ctx, "append")
		log.Error("failed to append check to ledger", zap.Error(err))
		if errors.Is(err, domain.ErrLedgerSync) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLedgerSync, err)
	}

	// The row is in the ledger from here on, so the check is returned with any error
	if err := s.Registry.Insert(check); err != nil {
		log.Error("failed to register pending check", zap.Error(err))
		return check, err
	}
	s.Metrics.CheckIssued(ctx)

	if err := s.Messenger.Send(ctx, RenderPrompt(check)); err != nil {
		s.Metrics.DeliveryFailed(ctx)
		log.Warn("decision prompt not delivered, check left pending",
			zap.Int64("chat_id", check.RecipientID()),
			zap.Error(err))
		return check, fmt.Errorf("failed to deliver check %s: %w", check.ID, err)
	}

	log.Info("check issued", zap.String("recipient", check.Draft.Recipient.Handle))
	return check, nil
}

// RenderPrompt builds the recipient's decision prompt.
// Each button carries the check id and the recipient id it was issued to.
func RenderPrompt(check *domain.Check) domain.Message {
	confirm := domain.NewDecisionPayload(domain.DecisionConfirm, check)
	reject := domain.NewDecisionPayload(domain.DecisionReject, check)

	amount1, amount2 := check.Draft.AmountTexts()
	return domain.Message{
		ChatID: check.RecipientID(),
		Text: "🔔 You have been sent a check to confirm:\n" +
			"📅 Date: " + check.Draft.Date + "\n" +
			"💰 Amount 1: " + amount1 + "\n" +
			"💰 Amount 2: " + amount2 + "\n" +
			"📛 Full name: " + check.Draft.FullName + "\n" +
			"Status: Pending ⏳",
		Inline: [][]domain.Button{
			{{Label: "✔ Confirm", Payload: confirm.String()}},
			{{Label: "✖ Reject", Payload: reject.String()}},
		},
	}
}
