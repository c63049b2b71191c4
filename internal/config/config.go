package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mathquiz/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Gemini struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"gemini"`
	Quiz struct {
		Grade      int    `yaml:"grade"`
		Topic      string `yaml:"topic"`
		Difficulty string `yaml:"difficulty"`
		Count      int    `yaml:"count"`
		Kind       string `yaml:"kind"`
		BatchTTL   string `yaml:"batch_ttl"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path. Missing files yield a zero config so that
// env vars and flags can still drive everything.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// QuizDefaults converts the config section to a batch request, filling gaps
// with the stock defaults (grade 9, medium, five mixed questions on quadratic
// equations).
func (c Config) QuizDefaults() domain.BatchRequest {
	req := domain.BatchRequest{
		Grade:      c.Quiz.Grade,
		Topic:      c.Quiz.Topic,
		Difficulty: domain.Difficulty(c.Quiz.Difficulty),
		Count:      c.Quiz.Count,
		Kind:       domain.QuestionKind(c.Quiz.Kind),
	}
	if req.Grade == 0 {
		req.Grade = 9
	}
	if req.Topic == "" {
		req.Topic = "Phương trình bậc hai"
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.Medium
	}
	if req.Count == 0 {
		req.Count = domain.MaxBatchSize
	}
	if req.Kind == "" {
		req.Kind = domain.Mixed
	}
	return req
}

// GeminiAPIKey prefers the config value, then the environment.
func (c Config) GeminiAPIKey() string {
	if c.Gemini.APIKey != "" {
		return c.Gemini.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}
