package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mathquiz/internal/domain"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini generates math questions through the Generative Language REST API.
// The response is requested as raw JSON (an array of question records); any
// record that does not match its declared shape is dropped rather than
// failing the whole batch.
type Gemini struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewGemini(apiKey, model, baseURL string) *Gemini {
	if model == "" {
		model = "gemini-pro"
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &Gemini{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// rawQuestion is the JSON contract the model is prompted to emit.
type rawQuestion struct {
	Type               string   `json:"type"`
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Propositions       []string `json:"propositions"`
	CorrectAnswersTF   []bool   `json:"correctAnswersTF"`
	Explanation        string   `json:"explanation"`
}

func (g *Gemini) Generate(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error) {
	count := req.Count
	if count < 1 || count > domain.MaxBatchSize {
		count = domain.MaxBatchSize
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(req, count)}}}},
		GenerationConfig: geminiGenConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.7,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}

	var raws []rawQuestion
	if err := json.Unmarshal([]byte(decoded.Candidates[0].Content.Parts[0].Text), &raws); err != nil {
		return nil, fmt.Errorf("parse question array: %w", err)
	}

	return ingest(raws, count), nil
}

// buildPrompt writes the Vietnamese teacher-voice prompt with the per-kind
// instruction picked by the request.
func buildPrompt(req domain.BatchRequest, count int) string {
	var typeInstruction string
	switch req.Kind {
	case domain.MultipleChoice:
		typeInstruction = "Tất cả câu hỏi phải là dạng TRẮC NGHIỆM 4 đáp án (A, B, C, D)."
	case domain.TrueFalse:
		typeInstruction = "Tất cả câu hỏi phải là dạng ĐÚNG/SAI với 4 mệnh đề (a, b, c, d)."
	default:
		typeInstruction = "Kết hợp ngẫu nhiên giữa câu hỏi TRẮC NGHIỆM và câu hỏi ĐÚNG/SAI."
	}

	return fmt.Sprintf(`Bạn là giáo viên Toán THCS.

Hãy tạo %d câu hỏi Toán lớp %d.
Chủ đề: %s.
Độ khó: %s.
%s

YÊU CẦU BẮT BUỘC:
- Chỉ trả về JSON hợp lệ
- Không markdown
- Không giải thích ngoài JSON
- Nếu không chắc, trả về mảng rỗng []

ĐỊNH DẠNG:
[
  {
    "type": "MULTIPLE_CHOICE",
    "questionText": "...",
    "options": ["A", "B", "C", "D"],
    "correctAnswerIndex": 0,
    "explanation": "..."
  },
  {
    "type": "TRUE_FALSE",
    "questionText": "...",
    "propositions": ["a", "b", "c", "d"],
    "correctAnswersTF": [true, false, true, false],
    "explanation": "..."
  }
]
`, count, req.Grade, req.Topic, req.Difficulty, typeInstruction)
}

// ingest converts raw records into domain questions, dropping malformed ones
// and capping the batch.
func ingest(raws []rawQuestion, limit int) []domain.Question {
	out := make([]domain.Question, 0, limit)
	for _, raw := range raws {
		if len(out) == limit {
			break
		}
		q, ok := convert(raw)
		if !ok {
			continue
		}
		out = append(out, q)
	}
	return AssignIDs(out)
}

func convert(raw rawQuestion) (domain.Question, bool) {
	if raw.QuestionText == "" {
		return domain.Question{}, false
	}
	switch domain.QuestionKind(raw.Type) {
	case domain.MultipleChoice:
		if len(raw.Options) != domain.OptionCount ||
			raw.CorrectAnswerIndex < 0 || raw.CorrectAnswerIndex >= domain.OptionCount {
			return domain.Question{}, false
		}
		return domain.Question{
			Kind:          domain.MultipleChoice,
			Prompt:        raw.QuestionText,
			Explanation:   raw.Explanation,
			Options:       raw.Options,
			CorrectOption: raw.CorrectAnswerIndex,
		}, true
	case domain.TrueFalse:
		if len(raw.Propositions) != domain.PropositionCount ||
			len(raw.CorrectAnswersTF) != domain.PropositionCount {
			return domain.Question{}, false
		}
		return domain.Question{
			Kind:         domain.TrueFalse,
			Prompt:       raw.QuestionText,
			Explanation:  raw.Explanation,
			Propositions: raw.Propositions,
			CorrectTruth: raw.CorrectAnswersTF,
		}, true
	default:
		return domain.Question{}, false
	}
}
