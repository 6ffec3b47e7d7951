package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
	"quizzapp-service/internal/infra/memory"
)

func newTestPlayer() (*Player, *app.QuizService) {
	repo := memory.NewSubjectRepository(memory.NewStaticSubjectLoader([]domain.Subject{
		{
			ID:            "geo",
			Title:         "Geography",
			Description:   "Capitals",
			QuestionCount: 2,
			Questions: []domain.Question{
				{Title: "Capital of France?", Answers: []string{"Paris", "Rome"}, CorrectAnswer: "Paris"},
				{Title: "Capital of Italy?", Answers: []string{"Paris", "Rome"}, CorrectAnswer: "Rome"},
			},
		},
		{ID: "empty", Title: "Empty"},
	}), time.Minute)
	service := app.NewQuizService(repo, memory.NewSessionStore(), memory.NewScoreStore(), app.Options{Logger: zerolog.Nop()})
	return NewPlayer(service, "local"), service
}

func TestPlayerCompletesQuiz(t *testing.T) {
	player, service := newTestPlayer()
	var out bytes.Buffer

	in := strings.NewReader("1\n1\n1\nn\nn\n")
	require.NoError(t, player.Run(context.Background(), in, &out))

	text := out.String()
	assert.Contains(t, text, "1. Geography (2 questions)")
	assert.Contains(t, text, "Capital of France?")
	assert.Contains(t, text, "Correct!")
	assert.Contains(t, text, "Wrong. Correct answer was Rome")
	assert.Contains(t, text, "Final score: 1/2")

	scores, err := service.Scores(context.Background(), "local")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 1, scores[0].BestScore)
}

func TestPlayerRetry(t *testing.T) {
	player, service := newTestPlayer()
	var out bytes.Buffer

	in := strings.NewReader("1\n2\n2\ny\n1\n2\nn\nn\n")
	require.NoError(t, player.Run(context.Background(), in, &out))

	assert.Equal(t, 1, strings.Count(out.String(), "Final score: 1/2"))
	assert.Equal(t, 1, strings.Count(out.String(), "Final score: 2/2"))

	scores, err := service.Scores(context.Background(), "local")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 2, scores[0].Attempts)
	assert.Equal(t, 2, scores[0].BestScore)
	assert.Equal(t, 2, scores[0].LastScore)
}

func TestPlayerQuitPrompt(t *testing.T) {
	player, service := newTestPlayer()
	var out bytes.Buffer

	// cancel the first quit, answer, then confirm the second quit
	in := strings.NewReader("1\nq\nn\n1\nq\ny\nn\n")
	require.NoError(t, player.Run(context.Background(), in, &out))

	assert.Contains(t, out.String(), "Quiz abandoned.")
	assert.NotContains(t, out.String(), "Final score")

	scores, err := service.Scores(context.Background(), "local")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestPlayerInvalidInput(t *testing.T) {
	player, _ := newTestPlayer()
	var out bytes.Buffer

	in := strings.NewReader("1\n9\nfoo\n1\n1\nn\nn\n")
	require.NoError(t, player.Run(context.Background(), in, &out))
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid input. Please enter a number 1-2 or q."))
	assert.Contains(t, out.String(), "Final score: 1/2")
}

func TestPlayerUnplayableSubject(t *testing.T) {
	player, _ := newTestPlayer()
	var out bytes.Buffer

	require.NoError(t, player.Run(context.Background(), strings.NewReader("2\n"), &out))
	assert.Contains(t, out.String(), "Empty has no questions yet.")
}

func TestPlayerEOFMidQuiz(t *testing.T) {
	player, _ := newTestPlayer()
	var out bytes.Buffer

	require.NoError(t, player.Run(context.Background(), strings.NewReader("1\n1\n"), &out))
	assert.NotContains(t, out.String(), "Final score")
}
