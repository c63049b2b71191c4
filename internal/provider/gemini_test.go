package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mathquiz/internal/domain"
)

func TestGeminiGeneratesQuestions(t *testing.T) {
	var gotPath string
	var gotBody geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeCandidate(w, `[
			{"type":"MULTIPLE_CHOICE","questionText":"2+2?","options":["3","4","5","6"],"correctAnswerIndex":1,"explanation":"4"},
			{"type":"TRUE_FALSE","questionText":"props","propositions":["a","b","c","d"],"correctAnswersTF":[true,false,true,false]}
		]`)
	}))
	defer server.Close()

	g := NewGemini("test-key", "gemini-pro", server.URL)
	questions, err := g.Generate(context.Background(), domain.BatchRequest{
		Grade: 9, Topic: "Phương trình bậc hai", Difficulty: domain.Medium, Count: 5, Kind: domain.Mixed,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-pro:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotBody.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("expected JSON response mime type, got %q", gotBody.GenerationConfig.ResponseMimeType)
	}

	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].ID != "q-0" || questions[1].ID != "q-1" {
		t.Fatalf("expected batch-order ids, got %s %s", questions[0].ID, questions[1].ID)
	}
	if questions[0].Kind != domain.MultipleChoice || questions[0].CorrectOption != 1 {
		t.Fatalf("unexpected first question %+v", questions[0])
	}
	if questions[1].Kind != domain.TrueFalse || len(questions[1].CorrectTruth) != 4 {
		t.Fatalf("unexpected second question %+v", questions[1])
	}
}

func TestGeminiPromptCarriesKindInstruction(t *testing.T) {
	prompt := buildPrompt(domain.BatchRequest{Grade: 8, Topic: "Hàm số", Difficulty: domain.Hard, Kind: domain.TrueFalse}, 3)
	if !strings.Contains(prompt, "ĐÚNG/SAI") {
		t.Fatalf("expected true/false instruction in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "3 câu hỏi") || !strings.Contains(prompt, "lớp 8") {
		t.Fatalf("expected count and grade in prompt:\n%s", prompt)
	}
}

func TestGeminiDropsMalformedRecordsAndCapsBatch(t *testing.T) {
	records := []string{
		`{"type":"MULTIPLE_CHOICE","questionText":"bad options","options":["1","2"],"correctAnswerIndex":0}`,
		`{"type":"MULTIPLE_CHOICE","questionText":"bad index","options":["1","2","3","4"],"correctAnswerIndex":9}`,
		`{"type":"TRUE_FALSE","questionText":"bad arity","propositions":["a","b","c","d"],"correctAnswersTF":[true]}`,
		`{"type":"ESSAY","questionText":"unknown kind"}`,
	}
	for i := 0; i < 7; i++ {
		records = append(records, `{"type":"MULTIPLE_CHOICE","questionText":"ok","options":["1","2","3","4"],"correctAnswerIndex":0}`)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCandidate(w, "["+strings.Join(records, ",")+"]")
	}))
	defer server.Close()

	g := NewGemini("test-key", "", server.URL)
	questions, err := g.Generate(context.Background(), domain.BatchRequest{Count: 5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != domain.MaxBatchSize {
		t.Fatalf("expected batch capped at %d valid questions, got %d", domain.MaxBatchSize, len(questions))
	}
	for _, q := range questions {
		if q.Prompt != "ok" {
			t.Fatalf("malformed record survived ingestion: %+v", q)
		}
	}
}

func TestGeminiErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGemini("test-key", "", server.URL)
	if _, err := g.Generate(context.Background(), domain.BatchRequest{Count: 5}); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestGeminiEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer server.Close()

	g := NewGemini("test-key", "", server.URL)
	questions, err := g.Generate(context.Background(), domain.BatchRequest{Count: 5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected empty batch, got %d", len(questions))
	}
}

func writeCandidate(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
}
