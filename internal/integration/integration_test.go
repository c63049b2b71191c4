package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"mathquiz/internal/domain"
	pgbank "mathquiz/internal/infra/postgres"
	pgmigrations "mathquiz/internal/infra/postgres/migrations"
	infraredis "mathquiz/internal/infra/redis"
	"mathquiz/internal/quiz"
)

func TestQuizAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestionBank(t, ctx, pgURL, bankQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bank := pgbank.NewQuestionBank(pool)
	cached := infraredis.NewBatchCache(redisClient, bank, 5*time.Minute)
	store := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := quiz.NewService(store, cached, domain.BatchRequest{
		Grade: 9, Topic: "Phương trình bậc hai", Difficulty: domain.Medium, Count: 2, Kind: domain.MultipleChoice,
	})

	session := service.Open()
	defer service.Close(session.ID())

	session.Start(ctx, service.Resolve(domain.BatchRequest{}))
	snap := waitForPhase(t, session, domain.PhaseActive)
	if snap.Total != 2 {
		t.Fatalf("expected 2 questions from bank, got %d", snap.Total)
	}

	// Both bank questions share the same correct option, so answering index 0
	// correctly is deterministic regardless of bank ordering.
	if err := session.RecordChoice(0, 1); err != nil {
		t.Fatalf("record: %v", err)
	}
	session.Submit()

	snap = session.Snapshot()
	if snap.Phase != domain.PhaseSummary || snap.Reason != domain.ReasonNormal {
		t.Fatalf("expected normal summary, got %+v", snap)
	}
	if snap.Score != 5.0 {
		t.Fatalf("expected score 5.00, got %.2f", snap.Score)
	}

	// A second attempt with the same parameters hits the Redis batch cache.
	second := service.Open()
	defer service.Close(second.ID())
	second.Start(ctx, service.Resolve(domain.BatchRequest{}))
	if snap := waitForPhase(t, second, domain.PhaseActive); snap.Total != 2 {
		t.Fatalf("expected cached batch for second attempt, got %d", snap.Total)
	}
}

func waitForPhase(t *testing.T, session *quiz.Session, phase domain.Phase) quiz.Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		snap := session.Snapshot()
		if snap.Phase == phase {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for phase %s, at %s", phase, snap.Phase)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestionBank(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal question: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO question_bank (grade, topic, difficulty, kind, data) VALUES (?, ?, ?, ?, ?::jsonb)`,
			9, "Phương trình bậc hai", string(domain.Medium), string(q.Kind), string(data)); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func bankQuestions() []domain.Question {
	return []domain.Question{
		{
			Kind:          domain.MultipleChoice,
			Prompt:        "Giải $x^2 - 4 = 0$",
			Options:       []string{"x = 4", "x = ±2", "x = 2", "vô nghiệm"},
			CorrectOption: 1,
		},
		{
			Kind:          domain.MultipleChoice,
			Prompt:        "Tính $\\sqrt{16}$",
			Options:       []string{"8", "4", "±4", "2"},
			CorrectOption: 1,
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
