package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
)

func singleQuestionSubject() domain.Subject {
	return domain.Subject{
		ID:            "s1",
		Title:         "Sample",
		QuestionCount: 1,
		Questions: []domain.Question{
			{Title: "Q1", Answers: []string{"A", "B", "C"}, CorrectAnswer: "B"},
		},
	}
}

func threeQuestionSubject() domain.Subject {
	return domain.Subject{
		ID:            "prog",
		Title:         "Programming",
		QuestionCount: 3,
		Questions: []domain.Question{
			{Title: "Typed?", Answers: []string{"Go", "Python"}, CorrectAnswer: "Go"},
			{Title: "JVM?", Answers: []string{"Kotlin", "C++"}, CorrectAnswer: "Kotlin"},
			{Title: "Native?", Answers: []string{"Java", "C++"}, CorrectAnswer: "C++"},
		},
	}
}

func TestCorrectAnswerCompletesWithScoreOne(t *testing.T) {
	session, err := app.NewSession("id", "u1", singleQuestionSubject())
	require.NoError(t, err)

	result, err := session.SubmitAnswer("B")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.TotalScore)
	assert.Equal(t, domain.StateAnswered, session.Progress().State)

	progress, completed, err := session.Advance()
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, domain.StateCompleted, progress.State)
	assert.Equal(t, 1, progress.Score)
	assert.Nil(t, progress.Question)
}

func TestWrongAnswerCompletesWithScoreZero(t *testing.T) {
	session, err := app.NewSession("id", "u1", singleQuestionSubject())
	require.NoError(t, err)

	result, err := session.SubmitAnswer("A")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, "B", result.CorrectAnswer)
	assert.Equal(t, 0, session.Score())

	progress, completed, err := session.Advance()
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, 0, progress.Score)
}

func TestAnswerMatchingIsExact(t *testing.T) {
	subject := singleQuestionSubject()
	subject.Questions[0].Answers = []string{"b", "B", " B"}
	session, err := app.NewSession("id", "u1", subject)
	require.NoError(t, err)

	result, err := session.SubmitAnswer("b")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, 0, session.Score())
}

func TestSelectionLockedUntilAdvance(t *testing.T) {
	session, err := app.NewSession("id", "u1", threeQuestionSubject())
	require.NoError(t, err)

	_, err = session.SubmitAnswer("Go")
	require.NoError(t, err)

	_, err = session.SubmitAnswer("Go")
	require.ErrorIs(t, err, domain.ErrSelectionLocked)
	assert.Equal(t, 1, session.Score(), "score must not increase twice for one question")
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	session, err := app.NewSession("id", "u1", threeQuestionSubject())
	require.NoError(t, err)

	_, _, err = session.Advance()
	require.ErrorIs(t, err, domain.ErrNotAnswered)
}

func TestMismatchedTextCountsAsWrong(t *testing.T) {
	session, err := app.NewSession("id", "u1", singleQuestionSubject())
	require.NoError(t, err)

	// neither offered nor correct: matching is exact, so "b" is not "B"
	result, err := session.SubmitAnswer("b")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Zero(t, result.TotalScore)

	progress := session.Progress()
	assert.Equal(t, domain.StateAnswered, progress.State)
	assert.Zero(t, progress.Score)
}

func TestProgressionVisitsEveryQuestionAndCompletesOnce(t *testing.T) {
	subject := threeQuestionSubject()
	session, err := app.NewSession("id", "u1", subject)
	require.NoError(t, err)

	completions := 0
	for i, q := range subject.Questions {
		progress := session.Progress()
		require.Equal(t, i, progress.QuestionIndex)
		require.NotNil(t, progress.Question)
		assert.Equal(t, q.Title, progress.Question.Title)

		_, err := session.SubmitAnswer(q.Answers[1])
		require.NoError(t, err)
		_, completed, err := session.Advance()
		require.NoError(t, err)
		if completed {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, session.Score(), "only the third question had its second option correct")

	_, err = session.SubmitAnswer("Go")
	require.ErrorIs(t, err, domain.ErrSessionCompleted)
	_, _, err = session.Advance()
	require.ErrorIs(t, err, domain.ErrSessionCompleted)
}

func TestProgressHidesCorrectAnswer(t *testing.T) {
	session, err := app.NewSession("id", "u1", singleQuestionSubject())
	require.NoError(t, err)

	progress := session.Progress()
	require.NotNil(t, progress.Question)
	assert.Equal(t, []string{"A", "B", "C"}, progress.Question.Answers)
	assert.Nil(t, progress.LastAnswer)
}

func TestUnplayableSubjectsRejected(t *testing.T) {
	empty := domain.Subject{ID: "empty", Title: "Empty"}
	_, err := app.NewSession("id", "u1", empty)
	require.ErrorIs(t, err, domain.ErrSubjectNotPlayable)

	noAnswers := singleQuestionSubject()
	noAnswers.Questions[0].Answers = nil
	_, err = app.NewSession("id", "u1", noAnswers)
	require.ErrorIs(t, err, domain.ErrSubjectNotPlayable)
}
