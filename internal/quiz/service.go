package quiz

import (
	"time"

	"github.com/google/uuid"

	"mathquiz/internal/domain"
)

// SessionRepository abstracts how live sessions are tracked (in-memory,
// Redis-marked, etc). Sessions themselves always live in process memory; they
// are never persisted.
type SessionRepository interface {
	Put(s *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// Service wires sessions to a batch provider and holds the configured
// request defaults.
type Service struct {
	sessions  SessionRepository
	provider  BatchProvider
	defaults  domain.BatchRequest
	tickEvery time.Duration
}

func NewService(store SessionRepository, provider BatchProvider, defaults domain.BatchRequest) *Service {
	return &Service{sessions: store, provider: provider, defaults: defaults, tickEvery: time.Second}
}

// NewServiceWithTick is test-only for fast clock intervals.
func NewServiceWithTick(store SessionRepository, provider BatchProvider, defaults domain.BatchRequest, tickEvery time.Duration) *Service {
	return &Service{sessions: store, provider: provider, defaults: defaults, tickEvery: tickEvery}
}

// Open mints a fresh session in Setup and registers it.
func (s *Service) Open() *Session {
	session := NewSessionWithClock(uuid.NewString(), s.provider, time.Now, s.tickEvery)
	s.sessions.Put(session)
	return session
}

// Get resolves a live session by ID.
func (s *Service) Get(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close shuts a session down and drops it from the repository.
func (s *Service) Close(id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Shutdown()
	s.sessions.Delete(id)
}

// Resolve merges a partial request with the configured defaults and clamps
// the count to the supported batch size.
func (s *Service) Resolve(req domain.BatchRequest) domain.BatchRequest {
	out := s.defaults
	if req.Grade != 0 {
		out.Grade = req.Grade
	}
	if req.Topic != "" {
		out.Topic = req.Topic
	}
	if req.Difficulty != "" {
		out.Difficulty = req.Difficulty
	}
	if req.Count != 0 {
		out.Count = req.Count
	}
	if req.Kind != "" {
		out.Kind = req.Kind
	}
	if out.Count < 1 {
		out.Count = 1
	}
	if out.Count > domain.MaxBatchSize {
		out.Count = domain.MaxBatchSize
	}
	return out
}
