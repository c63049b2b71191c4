package quiz

import (
	"math"

	"mathquiz/internal/domain"
)

// Score maps a question set and its answer slots to a final mark out of 10,
// rounded to two decimals with halves away from zero (math.Round semantics).
//
// A MultipleChoice question contributes 1.0 on an exact index match. A
// TrueFalse question contributes 0.25 per answered position matching the
// expected truth; unanswered positions never match. It is pure and invoked
// exactly once, at the Active→Summary transition.
func Score(questions []domain.Question, answers []domain.AnswerSlot) float64 {
	if len(questions) == 0 {
		return 0
	}

	var total float64
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		slot := answers[i]
		switch q.Kind {
		case domain.MultipleChoice:
			if slot.Choice >= 0 && slot.Choice == q.CorrectOption {
				total += 1.0
			}
		case domain.TrueFalse:
			for k, v := range slot.Truth {
				if v != nil && k < len(q.CorrectTruth) && *v == q.CorrectTruth[k] {
					total += 0.25
				}
			}
		}
	}

	return math.Round(total/float64(len(questions))*10*100) / 100
}
