package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// Config controls when the ledger breaker opens and how long it stays open
type Config struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Ledger wraps a LedgerRepository with a circuit breaker.
// While open, calls fail immediately with ErrLedgerSync; nothing is retried.
type Ledger struct {
	next    domain.LedgerRepository
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewLedger creates a breaker-protected ledger
func NewLedger(next domain.LedgerRepository, cfg Config, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A missing row or a bad check is an answer from a healthy ledger
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrLedgerRowNotFound) ||
				errors.Is(err, domain.ErrInvalidInput)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("ledger circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Ledger{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// AppendPending forwards to the wrapped ledger unless the breaker is open
func (l *Ledger) AppendPending(ctx context.Context, check *domain.Check) error {
	return l.execute(func() error {
		return l.next.AppendPending(ctx, check)
	})
}

// UpdateStatus forwards to the wrapped ledger unless the breaker is open
func (l *Ledger) UpdateStatus(ctx context.Context, checkID uuid.UUID, status domain.CheckStatus) error {
	return l.execute(func() error {
		return l.next.UpdateStatus(ctx, checkID, status)
	})
}

// State reports the breaker state, e.g. "closed" or "open"
func (l *Ledger) State() string {
	return l.breaker.State().String()
}

func (l *Ledger) execute(fn func() error) error {
	_, err := l.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: ledger unavailable (circuit breaker %s): %w", domain.ErrLedgerSync, l.State(), err)
	}
	return err
}
