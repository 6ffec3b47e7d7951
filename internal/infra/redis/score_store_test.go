package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizzapp-service/internal/domain"
)

func TestScoreStoreAggregatesPerSubject(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewScoreStore(newClient(mr))
	at := time.Unix(1_700_000_000, 0).UTC()

	for _, score := range []int{2, 4, 1} {
		rec := domain.ScoreRecord{UserID: "u1", SubjectID: "geo", SubjectTitle: "Geography", Score: score, QuestionCount: 5, CompletedAt: at}
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	scores, err := store.Scores(ctx, "u1")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("expected one subject, got %+v", scores)
	}
	if scores[0].BestScore != 4 || scores[0].LastScore != 1 || scores[0].Attempts != 3 {
		t.Fatalf("unexpected summary %+v", scores[0])
	}
	if !mr.Exists("quizzapp:scores:u1") {
		t.Fatalf("expected hash per user")
	}
}
