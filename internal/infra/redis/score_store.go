package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizzapp-service/internal/domain"
	"quizzapp-service/internal/infra/memory"
)

const maxRecordAttempts = 5

// ScoreStore keeps one hash per user: HSET quizzapp:scores:{userID} {subjectID} {summary JSON}.
type ScoreStore struct {
	client *redis.Client
}

func NewScoreStore(client *redis.Client) *ScoreStore {
	return &ScoreStore{client: client}
}

func (s *ScoreStore) Record(ctx context.Context, rec domain.ScoreRecord) error {
	key := s.key(rec.UserID)

	update := func(tx *redis.Tx) error {
		var summary domain.ScoreSummary
		raw, err := tx.HGet(ctx, key, rec.SubjectID).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &summary); err != nil {
				return fmt.Errorf("decode score summary: %w", err)
			}
		}

		data, err := json.Marshal(summary.Apply(rec))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, rec.SubjectID, data)
			return nil
		})
		return err
	}

	for i := 0; i < maxRecordAttempts; i++ {
		err := s.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("record score for %s: too much contention", rec.UserID)
}

func (s *ScoreStore) Scores(ctx context.Context, userID string) ([]domain.ScoreSummary, error) {
	raw, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScoreSummary, 0, len(raw))
	for _, value := range raw {
		var summary domain.ScoreSummary
		if err := json.Unmarshal([]byte(value), &summary); err != nil {
			return nil, fmt.Errorf("decode score summary: %w", err)
		}
		out = append(out, summary)
	}
	memory.SortSummaries(out)
	return out, nil
}

func (s *ScoreStore) key(userID string) string {
	return "quizzapp:scores:" + userID
}
