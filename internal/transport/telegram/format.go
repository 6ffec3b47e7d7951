package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quizzapp-service/internal/domain"
)

const helpText = `Commands:
/subjects - pick a quiz
/quit - abandon the running quiz
/scores - your best and last scores
/help - this message`

func subjectKeyboard(subjects []domain.Subject) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(subjects))
	for _, subject := range subjects {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(subject.Title, subjectPrefix+subject.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// answerKeyboard carries indices rather than answer text to stay within
// Telegram's 64 byte callback data limit.
func answerKeyboard(question domain.QuestionView) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(question.Answers))
	for i, answer := range question.Answers {
		data := fmt.Sprintf("%s%d:%d", answerPrefix, question.Index, i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(answer, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func quitKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Quit", quitPrefix+"yes"),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", quitPrefix+"no"),
	))
}

func formatSubjects(subjects []domain.Subject) string {
	var sb strings.Builder
	sb.WriteString("Pick a quiz:\n")
	for _, subject := range subjects {
		fmt.Fprintf(&sb, "\n%s (%d questions)", subject.Title, len(subject.Questions))
		if subject.Description != "" {
			fmt.Fprintf(&sb, "\n%s", subject.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatQuestion(progress domain.Progress) string {
	return fmt.Sprintf("%s\nQuestion %d/%d\n\n%s",
		progress.SubjectTitle, progress.QuestionIndex+1, progress.QuestionCount, progress.Question.Title)
}

func formatAnswer(result domain.AnswerResult) string {
	if result.Correct {
		return fmt.Sprintf("✅ Correct! Score: %d", result.TotalScore)
	}
	return fmt.Sprintf("❌ Wrong. The right answer is: %s\nScore: %d", result.CorrectAnswer, result.TotalScore)
}

func formatCompletion(progress domain.Progress) string {
	return fmt.Sprintf("%s finished!\nYou scored %d out of %d.",
		progress.SubjectTitle, progress.Score, progress.QuestionCount)
}

func formatScores(scores []domain.ScoreSummary) string {
	if len(scores) == 0 {
		return "You have not finished any quiz yet."
	}
	var sb strings.Builder
	sb.WriteString("📊 Your scores:\n")
	for _, s := range scores {
		fmt.Fprintf(&sb, "\n%s: best %d/%d, last %d/%d, %d attempts",
			s.SubjectTitle, s.BestScore, s.QuestionCount, s.LastScore, s.QuestionCount, s.Attempts)
	}
	return sb.String()
}
