package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quizzapp-service/internal/domain"
)

// ScoreStore keeps aggregated scores in a local SQLite file, for single-node
// deployments and the terminal player.
type ScoreStore struct {
	db *sql.DB
}

func NewScoreStore(ctx context.Context, path string) (*ScoreStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "quizzapp.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &ScoreStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *ScoreStore) Close() error {
	return s.db.Close()
}

func (s *ScoreStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scores (
			user_id TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			subject_title TEXT NOT NULL,
			best_score INTEGER NOT NULL,
			last_score INTEGER NOT NULL,
			question_count INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			last_played_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, subject_id)
		)`)
	return err
}

func (s *ScoreStore) Record(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (user_id, subject_id, subject_title, best_score, last_score, question_count, attempts, last_played_unix)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET
			subject_title = excluded.subject_title,
			best_score = MAX(scores.best_score, excluded.best_score),
			last_score = excluded.last_score,
			question_count = excluded.question_count,
			attempts = scores.attempts + 1,
			last_played_unix = excluded.last_played_unix`,
		rec.UserID, rec.SubjectID, rec.SubjectTitle, rec.Score, rec.Score, rec.QuestionCount, rec.CompletedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}

func (s *ScoreStore) Scores(ctx context.Context, userID string) ([]domain.ScoreSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_id, subject_title, best_score, last_score, question_count, attempts, last_played_unix
		FROM scores WHERE user_id = ? ORDER BY subject_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()

	out := []domain.ScoreSummary{}
	for rows.Next() {
		var (
			sum    domain.ScoreSummary
			played int64
		)
		if err := rows.Scan(&sum.SubjectID, &sum.SubjectTitle, &sum.BestScore, &sum.LastScore,
			&sum.QuestionCount, &sum.Attempts, &played); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		sum.LastPlayedAt = time.Unix(played, 0).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}
