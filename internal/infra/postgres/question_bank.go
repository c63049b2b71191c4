package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"mathquiz/internal/domain"
	"mathquiz/internal/provider"
)

// QuestionBank serves question batches from a Postgres table of pre-authored
// questions (JSONB per row). It is the offline alternative to the generation
// backend: same contract, zero rows is an empty batch, not an error.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) Generate(ctx context.Context, req domain.BatchRequest) ([]domain.Question, error) {
	count := req.Count
	if count < 1 || count > domain.MaxBatchSize {
		count = domain.MaxBatchSize
	}

	query := `SELECT data FROM question_bank
		WHERE grade=$1 AND topic=$2 AND difficulty=$3`
	args := []interface{}{req.Grade, req.Topic, string(req.Difficulty)}
	if req.Kind != "" && req.Kind != domain.Mixed {
		query += ` AND kind=$4`
		args = append(args, string(req.Kind))
	}
	query += fmt.Sprintf(` ORDER BY random() LIMIT %d`, count)

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query question bank: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return provider.AssignIDs(questions), nil
}
