package memory

import (
	"context"
	"sort"
	"sync"

	"quizzapp-service/internal/domain"
)

// ScoreStore aggregates completed attempts in process memory.
type ScoreStore struct {
	mu     sync.RWMutex
	byUser map[string]map[string]domain.ScoreSummary
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{byUser: make(map[string]map[string]domain.ScoreSummary)}
}

func (s *ScoreStore) Record(_ context.Context, rec domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subjects, ok := s.byUser[rec.UserID]
	if !ok {
		subjects = make(map[string]domain.ScoreSummary)
		s.byUser[rec.UserID] = subjects
	}
	subjects[rec.SubjectID] = subjects[rec.SubjectID].Apply(rec)
	return nil
}

func (s *ScoreStore) Scores(_ context.Context, userID string) ([]domain.ScoreSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScoreSummary, 0, len(s.byUser[userID]))
	for _, summary := range s.byUser[userID] {
		out = append(out, summary)
	}
	SortSummaries(out)
	return out, nil
}

// SortSummaries orders summaries by subject id so listings are stable.
func SortSummaries(summaries []domain.ScoreSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SubjectID < summaries[j].SubjectID
	})
}
