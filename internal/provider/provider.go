package provider

import (
	"context"
	"fmt"

	"mathquiz/internal/domain"
)

// Func adapts a function to the quiz.BatchProvider interface.
type Func func(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error)

func (f Func) Generate(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error) {
	return f(ctx, req)
}

// AssignIDs stamps batch-order identifiers onto a question set. IDs belong to
// the core, not the provider: they only need to be unique within one session.
func AssignIDs(questions []domain.Question) []domain.Question {
	for i := range questions {
		questions[i].ID = fmt.Sprintf("q-%d", i)
	}
	return questions
}

// Static serves a fixed question set, capped at the requested count and
// filtered by kind unless the request is Mixed. Useful for demos and tests.
type Static struct {
	questions []domain.Question
}

func NewStatic(questions []domain.Question) *Static {
	return &Static{questions: questions}
}

func (s *Static) Generate(_ context.Context, req domain.BatchRequest) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if req.Kind != "" && req.Kind != domain.Mixed && q.Kind != req.Kind {
			continue
		}
		out = append(out, q)
		if req.Count > 0 && len(out) == req.Count {
			break
		}
	}
	return AssignIDs(out), nil
}
