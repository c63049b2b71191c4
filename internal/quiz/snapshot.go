package quiz

import "mathquiz/internal/domain"

// Snapshot is the read-only view of a session pushed to subscribers. It is
// the entire rendering boundary: nothing outside the four session operations
// mutates state.
type Snapshot struct {
	SessionID      string                   `json:"sessionId"`
	Phase          domain.Phase             `json:"phase"`
	Cursor         int                      `json:"cursor"`
	Total          int                      `json:"total"`
	Question       *domain.Question         `json:"question,omitempty"`
	Answer         *domain.AnswerSlot       `json:"answer,omitempty"`
	Answered       int                      `json:"answered"`
	ElapsedSeconds int                      `json:"elapsedSeconds"`
	Score          float64                  `json:"score"`
	Reason         domain.TerminationReason `json:"terminationReason"`
	Notice         string                   `json:"notice,omitempty"`

	// Full review data, populated only in Summary.
	Questions []domain.Question   `json:"questions,omitempty"`
	Answers   []domain.AnswerSlot `json:"answers,omitempty"`
}

// Snapshot returns the current read-only view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:      s.id,
		Phase:          s.phase,
		Cursor:         s.cursor,
		Total:          len(s.questions),
		ElapsedSeconds: s.elapsed,
		Score:          s.score,
		Reason:         s.reason,
		Notice:         s.notice,
	}

	answered := 0
	for _, slot := range s.answers {
		if slot.Answered() {
			answered++
		}
	}
	snap.Answered = answered

	if s.cursor >= 0 && s.cursor < len(s.questions) {
		q := s.questions[s.cursor]
		snap.Question = &q
		a := copySlot(s.answers[s.cursor])
		snap.Answer = &a
	}

	if s.phase == domain.PhaseSummary {
		snap.Questions = append([]domain.Question(nil), s.questions...)
		snap.Answers = make([]domain.AnswerSlot, len(s.answers))
		for i, slot := range s.answers {
			snap.Answers[i] = copySlot(slot)
		}
	}
	return snap
}

// copySlot detaches a slot from the live aggregate so later recordings cannot
// mutate a snapshot already handed out.
func copySlot(slot domain.AnswerSlot) domain.AnswerSlot {
	out := slot
	if slot.Truth != nil {
		out.Truth = make([]*bool, len(slot.Truth))
		for i, v := range slot.Truth {
			if v != nil {
				b := *v
				out.Truth[i] = &b
			}
		}
	}
	return out
}
