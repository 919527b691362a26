package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Service keeps one wizard session per operator.
// The map lock is held only to find a session; steps lock the session itself,
// so operators never wait on each other.
type Service struct {
	Resolver  Resolver
	Operators domain.OperatorSet
	Now       func() time.Time

	mu       sync.Mutex
	sessions map[int64]*entry
}

// NewService creates a new Service instance
func NewService(resolver Resolver, operators domain.OperatorSet) *Service {
	return &Service{
		Resolver:  resolver,
		Operators: operators,
		Now:       time.Now,
		sessions:  make(map[int64]*entry),
	}
}

// Start opens a fresh session for operatorID, discarding any previous one.
// Returns ErrUnauthorized without touching any session for non-operators.
func (s *Service) Start(operatorID int64) (Effect, error) {
	if !s.Operators.Contains(operatorID) {
		return Effect{}, domain.ErrUnauthorized
	}

	session := NewSession(s.Resolver, s.Now)
	s.mu.Lock()
	s.sessions[operatorID] = &entry{session: session}
	s.mu.Unlock()

	return session.StartEffect(), nil
}

// Handle feeds typed input to the operator's session.
// Returns false when the operator has no session in progress.
func (s *Service) Handle(ctx context.Context, operatorID int64, input string) (Effect, bool) {
	return s.apply(operatorID, func(session *Session) (Effect, bool) {
		return session.Step(ctx, input), true
	})
}

// Press feeds a preview button to the operator's session.
// Returns false when the operator has no session in progress.
func (s *Service) Press(operatorID int64, data string) (Effect, bool) {
	return s.apply(operatorID, func(session *Session) (Effect, bool) {
		return session.Press(data), true
	})
}

// Finish reports whether the check confirmed under previewID was issued.
// Returns false when the session was cancelled or replaced meanwhile.
func (s *Service) Finish(operatorID int64, previewID string, issued bool) (Effect, bool) {
	return s.apply(operatorID, func(session *Session) (Effect, bool) {
		return session.Finish(previewID, issued)
	})
}

// Cancel discards the operator's session.
// Returns false when there was nothing to cancel.
func (s *Service) Cancel(operatorID int64) (Effect, bool) {
	return s.Handle(context.Background(), operatorID, CancelInput)
}

// Active reports whether the operator has a session in progress
func (s *Service) Active(operatorID int64) bool {
	return s.lookup(operatorID) != nil
}

// State returns the step of the operator's session, Idle if none
func (s *Service) State(operatorID int64) State {
	e := s.lookup(operatorID)
	if e == nil {
		return Idle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.State()
}

// apply runs fn under the session lock and drops the session once it is Idle
func (s *Service) apply(operatorID int64, fn func(*Session) (Effect, bool)) (Effect, bool) {
	e := s.lookup(operatorID)
	if e == nil {
		return Effect{}, false
	}

	e.mu.Lock()
	effect, ok := fn(e.session)
	e.mu.Unlock()
	if !ok {
		return Effect{}, false
	}

	if effect.State == Idle {
		s.release(operatorID, e)
	}

	return effect, true
}

func (s *Service) lookup(operatorID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[operatorID]
}

// release drops e unless Start already replaced it with a newer session
func (s *Service) release(operatorID int64, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[operatorID] == e {
		delete(s.sessions, operatorID)
	}
}
