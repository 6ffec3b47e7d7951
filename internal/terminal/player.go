package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
)

const maxAttempts = 3

var errQuit = errors.New("quit")

// Player runs quizzes on a terminal. The service should have no lockout so
// the player advances right after showing the answer feedback.
type Player struct {
	service *app.QuizService
	userID  string
}

func NewPlayer(service *app.QuizService, userID string) *Player {
	return &Player{service: service, userID: userID}
}

// Run lets the user pick a subject and play until they leave.
func (p *Player) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	list, err := p.service.ListSubjects(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No quizzes available.")
		return nil
	}

	for {
		printSubjects(out, list)
		choice, ok := readChoice(reader, out, len(list))
		if !ok {
			return nil
		}

		progress, err := p.service.Start(ctx, p.userID, list[choice].ID)
		if err != nil {
			if errors.Is(err, domain.ErrSubjectNotPlayable) {
				fmt.Fprintf(out, "\n%s has no questions yet.\n", list[choice].Title)
				continue
			}
			return err
		}

		for {
			progress, err = p.play(ctx, reader, out, progress)
			if errors.Is(err, errQuit) {
				fmt.Fprintln(out, "\nQuiz abandoned.")
				break
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nFinal score: %d/%d\n", progress.Score, progress.QuestionCount)
			if !confirm(reader, out, "Play again? (y/n) ") {
				p.service.Close(ctx, progress.SessionID)
				break
			}
			if progress, err = p.service.Retry(ctx, progress.SessionID); err != nil {
				return err
			}
		}

		if !confirm(reader, out, "\nPick another quiz? (y/n) ") {
			return nil
		}
	}
}

// play drives one session to completion and returns the final snapshot.
func (p *Player) play(ctx context.Context, reader *bufio.Reader, out io.Writer, progress domain.Progress) (domain.Progress, error) {
	for progress.State != domain.StateCompleted {
		question := progress.Question
		printQuestion(out, progress)

		var index int
	input:
		for {
			choice, err := readAnswer(reader, out, len(question.Answers))
			switch {
			case err == nil:
				index = choice
				break input
			case errors.Is(err, io.EOF):
				p.service.Close(ctx, progress.SessionID)
				return progress, err
			case p.quit(ctx, reader, out, progress.SessionID):
				return progress, errQuit
			}
			printQuestion(out, progress)
		}

		result, err := p.service.SubmitAnswer(ctx, progress.SessionID, question.Answers[index])
		if err != nil {
			return progress, err
		}
		if result.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Wrong. Correct answer was %s\n", result.CorrectAnswer)
		}

		if progress, err = p.service.Advance(ctx, progress.SessionID); err != nil {
			return progress, err
		}
	}
	return progress, nil
}

// quit asks for confirmation and closes the session when confirmed.
func (p *Player) quit(ctx context.Context, reader *bufio.Reader, out io.Writer, sessionID string) bool {
	outcome := domain.AlertCancelled
	if confirm(reader, out, "\nQuit this quiz? Your progress will be lost. (y/n) ") {
		outcome = domain.AlertConfirmed
	}
	closed, err := p.service.Quit(ctx, sessionID, outcome)
	return err == nil && closed
}

func printSubjects(out io.Writer, subjects []domain.Subject) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Pick a quiz:")
	for i, subject := range subjects {
		fmt.Fprintf(out, "%d. %s (%d questions)\n", i+1, subject.Title, len(subject.Questions))
		if subject.Description != "" {
			fmt.Fprintf(out, "   %s\n", subject.Description)
		}
	}
	fmt.Fprintln(out)
}

func printQuestion(out io.Writer, progress domain.Progress) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s  Q%d/%d  Score: %d\n\n", progress.SubjectTitle,
		progress.QuestionIndex+1, progress.QuestionCount, progress.Score)
	fmt.Fprintln(out, progress.Question.Title)
	fmt.Fprintln(out)
	for i, answer := range progress.Question.Answers {
		fmt.Fprintf(out, "%d. %s\n", i+1, answer)
	}
	fmt.Fprintln(out, "q. Quit")
	fmt.Fprintln(out)
}

// readChoice returns a zero based index, or false on EOF or repeated bad input.
func readChoice(reader *bufio.Reader, out io.Writer, count int) (int, bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return -1, false
		}
		if n, convErr := strconv.Atoi(strings.TrimSpace(line)); convErr == nil && n >= 1 && n <= count {
			return n - 1, true
		}
		if err != nil {
			return -1, false
		}
		if attempt < maxAttempts {
			fmt.Fprintf(out, "\nInvalid input. Please enter a number 1-%d.\n", count)
		}
	}
	return -1, false
}

// readAnswer is readChoice that also accepts "q", reported as errQuit.
// Bad input is asked again; only EOF ends the prompt.
func readAnswer(reader *bufio.Reader, out io.Writer, count int) (int, error) {
	for {
		line, err := reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if strings.EqualFold(text, "q") {
			return -1, errQuit
		}
		if n, convErr := strconv.Atoi(text); convErr == nil && n >= 1 && n <= count {
			return n - 1, nil
		}
		if err != nil {
			return -1, io.EOF
		}
		fmt.Fprintf(out, "\nInvalid input. Please enter a number 1-%d or q.\n", count)
	}
}

func confirm(reader *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
