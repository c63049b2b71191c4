package quiz

import (
	"context"
	"sync"
	"time"

	"mathquiz/internal/domain"
)

// BatchProvider generates the question batch for one attempt. Implementations
// may fail or return zero questions; both outcomes route the session back to
// Setup.
type BatchProvider interface {
	Generate(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error)
}

// Session is the single-writer aggregate for one quiz attempt. All mutating
// operations take the lock and run to completion, so events from the UI, the
// clock and the visibility monitor never interleave mid-transition.
type Session struct {
	id       string
	provider BatchProvider
	now      func() time.Time

	mu          sync.Mutex
	phase       domain.Phase
	questions   []domain.Question
	answers     []domain.AnswerSlot
	cursor      int
	attempt     int
	startedAt   time.Time
	elapsed     int
	reason      domain.TerminationReason
	score       float64
	notice      string
	tickEvery   time.Duration
	stopClock   chan struct{}
	subscribers map[chan Snapshot]struct{}
}

// NewSession builds a session in Setup with a one-second clock.
func NewSession(id string, provider BatchProvider) *Session {
	return NewSessionWithClock(id, provider, time.Now, time.Second)
}

// NewSessionWithClock allows deterministic time and tick interval in tests.
func NewSessionWithClock(id string, provider BatchProvider, now func() time.Time, tickEvery time.Duration) *Session {
	return &Session{
		id:          id,
		provider:    provider,
		now:         now,
		tickEvery:   tickEvery,
		phase:       domain.PhaseSetup,
		reason:      domain.ReasonNone,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start moves Setup→Loading and fires the provider call. The attempt counter
// tags the in-flight call so a response landing after a restart is discarded.
func (s *Session) Start(ctx context.Context, req domain.BatchRequest) {
	s.mu.Lock()
	if s.phase != domain.PhaseSetup {
		s.mu.Unlock()
		return
	}
	s.phase = domain.PhaseLoading
	s.notice = ""
	s.attempt++
	attempt := s.attempt
	s.broadcastLocked()
	s.mu.Unlock()

	go func() {
		questions, err := s.provider.Generate(ctx, req)
		s.deliverBatch(attempt, questions, err)
	}()
}

// deliverBatch resolves the Loading phase. A stale response (phase left
// Loading, or a newer attempt started) is dropped silently. Empty batches and
// provider failures collapse into the same Loading→Setup path with a notice;
// only a non-empty batch enters Active.
func (s *Session) deliverBatch(attempt int, questions []domain.Question, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLoading || attempt != s.attempt {
		return
	}
	if err != nil || len(questions) == 0 {
		s.phase = domain.PhaseSetup
		s.notice = "could not generate questions, please try again"
		s.broadcastLocked()
		return
	}

	s.questions = questions
	s.answers = make([]domain.AnswerSlot, len(questions))
	for i, q := range questions {
		s.answers[i] = domain.NewAnswerSlot(q)
	}
	s.cursor = 0
	s.elapsed = 0
	s.startedAt = s.now()
	s.reason = domain.ReasonNone
	s.score = 0
	s.phase = domain.PhaseActive
	s.startClockLocked()
	s.broadcastLocked()
}

// Navigate moves the cursor by delta, clamped to the question range. Moving
// past either end is a no-op, not an error.
func (s *Session) Navigate(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseActive {
		return
	}
	next := s.cursor + delta
	if next < 0 {
		next = 0
	}
	if next > len(s.questions)-1 {
		next = len(s.questions) - 1
	}
	if next == s.cursor {
		return
	}
	s.cursor = next
	s.broadcastLocked()
}

// RecordChoice stores an option index for a MultipleChoice question,
// replacing any prior value. Outside Active it is a silent no-op (stray late
// UI events); a malformed index or kind mismatch is rejected without touching
// any slot.
func (s *Session) RecordChoice(questionIndex, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseActive {
		return nil
	}
	if questionIndex < 0 || questionIndex >= len(s.questions) {
		return domain.ErrInvalidAnswer
	}
	q := s.questions[questionIndex]
	if q.Kind != domain.MultipleChoice || optionIndex < 0 || optionIndex >= len(q.Options) {
		return domain.ErrInvalidAnswer
	}
	s.answers[questionIndex].Choice = optionIndex
	s.broadcastLocked()
	return nil
}

// RecordTruth sets exactly one proposition's boolean in a TrueFalse slot,
// leaving the other positions untouched. Partial answers persist across
// navigation.
func (s *Session) RecordTruth(questionIndex, propositionIndex int, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseActive {
		return nil
	}
	if questionIndex < 0 || questionIndex >= len(s.questions) {
		return domain.ErrInvalidAnswer
	}
	q := s.questions[questionIndex]
	if q.Kind != domain.TrueFalse || propositionIndex < 0 || propositionIndex >= len(s.answers[questionIndex].Truth) {
		return domain.ErrInvalidAnswer
	}
	v := value
	s.answers[questionIndex].Truth[propositionIndex] = &v
	s.broadcastLocked()
	return nil
}

// Submit terminates the attempt normally.
func (s *Session) Submit() {
	s.finish(domain.ReasonNormal)
}

// VisibilityLost is the forced-termination signal from the visibility
// monitor. It is level-triggered and one-shot: once the session has left
// Active, further signals are ignored.
func (s *Session) VisibilityLost() {
	s.finish(domain.ReasonVisibilityLoss)
}

// finish performs the single Active→Summary transition. The phase check makes
// the transition idempotent: whichever of submit or visibility loss reaches
// the lock first wins, and the loser is a no-op.
func (s *Session) finish(reason domain.TerminationReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseActive {
		return
	}
	s.score = Score(s.questions, s.answers)
	s.reason = reason
	s.phase = domain.PhaseSummary
	s.stopClockLocked()
	s.broadcastLocked()
}

// Restart discards the attempt and returns to Setup. Valid from any phase;
// restarting out of Loading leaves the in-flight provider call to be dropped
// by the stale-response guard.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopClockLocked()
	s.questions = nil
	s.answers = nil
	s.cursor = 0
	s.elapsed = 0
	s.startedAt = time.Time{}
	s.reason = domain.ReasonNone
	s.score = 0
	s.notice = ""
	s.phase = domain.PhaseSetup
	s.broadcastLocked()
}

// Subscribe returns a channel receiving a snapshot after every applied event.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Shutdown stops the clock and closes all subscriber channels. Used when the
// owning connection goes away.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopClockLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow consumer never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
