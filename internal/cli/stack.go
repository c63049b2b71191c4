package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"mathquiz/internal/config"
	"mathquiz/internal/domain"
	"mathquiz/internal/infra/memory"
	pgbank "mathquiz/internal/infra/postgres"
	redisinfra "mathquiz/internal/infra/redis"
	"mathquiz/internal/provider"
	"mathquiz/internal/quiz"
)

// stack holds the wired dependencies shared by serve and play.
type stack struct {
	service *quiz.Service
	cleanup func()
}

// buildStack selects the question source (postgres bank, Gemini, or a static
// sample set), wraps it in a batch cache (Redis when configured, in-memory
// otherwise) and picks the matching session store.
func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}

	var source quiz.BatchProvider
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, err
		}
		cleanups = append(cleanups, pool.Close)
		source = pgbank.NewQuestionBank(pool)
	case cfg.GeminiAPIKey() != "":
		source = provider.NewGemini(cfg.GeminiAPIKey(), cfg.Gemini.Model, cfg.Gemini.BaseURL)
	default:
		source = provider.NewStatic(sampleQuestions())
	}

	batchTTL := config.TTLDuration(cfg.Quiz.BatchTTL, 10*time.Minute)
	var cached quiz.BatchProvider
	if redisClient != nil {
		cached = redisinfra.NewBatchCache(redisClient, source, batchTTL)
	} else {
		cached = memory.NewBatchCache(source, batchTTL)
	}

	var store quiz.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	return &stack{
		service: quiz.NewService(store, cached, cfg.QuizDefaults()),
		cleanup: cleanup,
	}, nil
}

// sampleQuestions is the built-in demo set used when neither Postgres nor a
// Gemini key is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Kind:          domain.MultipleChoice,
			Prompt:        "Giải phương trình $x^2 - 5x + 6 = 0$. Tập nghiệm là?",
			Options:       []string{"{2; 3}", "{-2; -3}", "{1; 6}", "{-1; -6}"},
			CorrectOption: 0,
			Explanation:   "Phân tích: $(x-2)(x-3)=0$.",
		},
		{
			Kind:   domain.TrueFalse,
			Prompt: "Cho phương trình $x^2 + 2x + 1 = 0$. Xét các mệnh đề sau.",
			Propositions: []string{
				"Phương trình có nghiệm kép",
				"Biệt thức $\\Delta > 0$",
				"$x = -1$ là nghiệm",
				"Tổng hai nghiệm bằng 2",
			},
			CorrectTruth: []bool{true, false, true, false},
			Explanation:  "$\\Delta = 0$ nên nghiệm kép $x=-1$; tổng nghiệm $=-2$.",
		},
		{
			Kind:          domain.MultipleChoice,
			Prompt:        "Giá trị của $\\sqrt{49}$ là?",
			Options:       []string{"±7", "7", "-7", "49"},
			CorrectOption: 1,
			Explanation:   "Căn bậc hai số học của 49 là 7.",
		},
	}
}
