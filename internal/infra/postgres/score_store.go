package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizzapp-service/internal/domain"
)

// ScoreStore aggregates completed attempts in the scores table.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) Record(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scores (user_id, subject_id, subject_title, best_score, last_score, question_count, attempts, last_played_at)
		VALUES ($1, $2, $3, $4, $4, $5, 1, $6)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET
			subject_title  = EXCLUDED.subject_title,
			best_score     = GREATEST(scores.best_score, EXCLUDED.best_score),
			last_score     = EXCLUDED.last_score,
			question_count = EXCLUDED.question_count,
			attempts       = scores.attempts + 1,
			last_played_at = EXCLUDED.last_played_at`,
		rec.UserID, rec.SubjectID, rec.SubjectTitle, rec.Score, rec.QuestionCount, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}

func (s *ScoreStore) Scores(ctx context.Context, userID string) ([]domain.ScoreSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subject_id, subject_title, best_score, last_score, question_count, attempts, last_played_at
		FROM scores WHERE user_id = $1 ORDER BY subject_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()

	out := []domain.ScoreSummary{}
	for rows.Next() {
		var sum domain.ScoreSummary
		if err := rows.Scan(&sum.SubjectID, &sum.SubjectTitle, &sum.BestScore, &sum.LastScore,
			&sum.QuestionCount, &sum.Attempts, &sum.LastPlayedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
