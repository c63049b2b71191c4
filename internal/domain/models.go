package domain

// QuestionKind discriminates the supported question shapes.
type QuestionKind string

const (
	// MultipleChoice is a four-option question with exactly one correct option.
	MultipleChoice QuestionKind = "MULTIPLE_CHOICE"
	// TrueFalse is a question with four propositions, each independently true or false.
	TrueFalse QuestionKind = "TRUE_FALSE"
	// Mixed is a request-level selector only: the provider picks the kind per
	// question. It is never the kind of a concrete Question.
	Mixed QuestionKind = "MIXED"
)

// Difficulty grades how hard the generated questions should be.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// MaxBatchSize caps how many questions a single attempt may contain.
const MaxBatchSize = 5

// PropositionCount is the fixed number of propositions in a TrueFalse question.
const PropositionCount = 4

// OptionCount is the fixed number of options in a MultipleChoice question.
const OptionCount = 4

// BatchRequest describes one request to a question batch provider.
type BatchRequest struct {
	Grade      int          `json:"grade"`
	Topic      string       `json:"topic"`
	Difficulty Difficulty   `json:"difficulty"`
	Count      int          `json:"count"`
	Kind       QuestionKind `json:"kind"`
}

// Question is immutable once ingested. IDs are assigned by the core at
// ingestion (batch order), never by the provider.
type Question struct {
	ID          string       `json:"id"`
	Kind        QuestionKind `json:"kind"`
	Prompt      string       `json:"prompt"`
	Explanation string       `json:"explanation,omitempty"`

	// MultipleChoice only.
	Options       []string `json:"options,omitempty"`
	CorrectOption int      `json:"correctOption,omitempty"`

	// TrueFalse only. CorrectTruth is positionally aligned with Propositions.
	Propositions []string `json:"propositions,omitempty"`
	CorrectTruth []bool   `json:"correctTruth,omitempty"`
}

// AnswerSlot holds the stored answer state for one question, shaped by that
// question's kind and never reinterpreted across kinds.
//
// For MultipleChoice, Choice is an option index with -1 meaning unanswered;
// the sentinel is kept (rather than a pointer) because the slot doubles as the
// wire shape pushed to clients. For TrueFalse, Truth holds one entry per
// proposition, nil meaning that position is unanswered.
type AnswerSlot struct {
	Kind   QuestionKind `json:"kind"`
	Choice int          `json:"choice"`
	Truth  []*bool      `json:"truth,omitempty"`
}

// NewAnswerSlot builds the unanswered slot matching a question's kind.
func NewAnswerSlot(q Question) AnswerSlot {
	switch q.Kind {
	case TrueFalse:
		return AnswerSlot{Kind: TrueFalse, Truth: make([]*bool, PropositionCount)}
	default:
		return AnswerSlot{Kind: MultipleChoice, Choice: -1}
	}
}

// Answered reports whether the slot carries at least one recorded value.
func (s AnswerSlot) Answered() bool {
	if s.Kind == TrueFalse {
		for _, v := range s.Truth {
			if v != nil {
				return true
			}
		}
		return false
	}
	return s.Choice >= 0
}

// Phase is the coarse lifecycle state of a session.
type Phase string

const (
	PhaseSetup   Phase = "setup"
	PhaseLoading Phase = "loading"
	PhaseActive  Phase = "active"
	PhaseSummary Phase = "summary"
)

// TerminationReason records why a session left Active. It is set exactly
// once, at the Active→Summary transition.
type TerminationReason string

const (
	ReasonNone           TerminationReason = "none"
	ReasonNormal         TerminationReason = "normal"
	ReasonVisibilityLoss TerminationReason = "visibility_loss"
)
