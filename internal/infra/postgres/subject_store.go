package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizzapp-service/internal/domain"
)

// SubjectStore keeps a synced copy of the upstream subjects as JSONB rows.
type SubjectStore struct {
	pool *pgxpool.Pool
}

func NewSubjectStore(pool *pgxpool.Pool) *SubjectStore {
	return &SubjectStore{pool: pool}
}

// LoadSubjects returns the stored subjects in upstream order.
func (s *SubjectStore) LoadSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM subjects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	defer rows.Close()

	out := []domain.Subject{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		var subject domain.Subject
		if err := json.Unmarshal(raw, &subject); err != nil {
			return nil, fmt.Errorf("unmarshal subject: %w", err)
		}
		out = append(out, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	return out, nil
}

// ReplaceSubjects swaps the stored set for the given list in one transaction.
func (s *SubjectStore) ReplaceSubjects(ctx context.Context, subjects []domain.Subject) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM subjects`); err != nil {
			return fmt.Errorf("clear subjects: %w", err)
		}
		for i, subject := range subjects {
			data, err := json.Marshal(subject)
			if err != nil {
				return fmt.Errorf("marshal subject %s: %w", subject.ID, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO subjects (id, position, data, synced_at) VALUES ($1, $2, $3::jsonb, now())`,
				subject.ID, i, string(data),
			); err != nil {
				return fmt.Errorf("insert subject %s: %w", subject.ID, err)
			}
		}
		return nil
	})
}
