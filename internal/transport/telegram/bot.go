package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
)

const (
	cmdStart    = "start"
	cmdSubjects = "subjects"
	cmdQuit     = "quit"
	cmdScores   = "scores"
	cmdHelp     = "help"

	subjectPrefix = "subject:"
	answerPrefix  = "answer:"
	quitPrefix    = "quit:"
	retryData     = "retry"
)

// Sender is the part of tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot plays quizzes over Telegram, one session per chat.
type Bot struct {
	api     Sender
	service *app.QuizService
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

type chatSession struct {
	id     string
	cancel func()
}

func New(api Sender, service *app.QuizService, logger zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		service:  service,
		logger:   logger,
		sessions: make(map[int64]*chatSession),
	}
}

// Run consumes updates until the channel closes or ctx is done.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	b.logger.Info().Msg("telegram bot polling")
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return
		case update, ok := <-updates:
			if !ok {
				b.closeAll()
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case cmdStart, cmdSubjects:
		b.sendSubjects(ctx, chatID)
	case cmdQuit:
		if b.current(chatID) == "" {
			b.sendText(chatID, "No quiz is running. Use /subjects to pick one.")
			return
		}
		msg := tgbotapi.NewMessage(chatID, "Quit the quiz? Your progress will be lost.")
		msg.ReplyMarkup = quitKeyboard()
		b.send(msg)
	case cmdScores:
		b.sendScores(ctx, chatID, userID(message.From, chatID))
	case cmdHelp:
		b.sendText(chatID, helpText)
	default:
		b.sendText(chatID, "Unknown command. Use /subjects to pick a quiz or /help for assistance.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	b.ack(callback.ID)

	data := callback.Data
	switch {
	case strings.HasPrefix(data, subjectPrefix):
		b.startQuiz(ctx, chatID, userID(callback.From, chatID), strings.TrimPrefix(data, subjectPrefix))
	case strings.HasPrefix(data, answerPrefix):
		questionIndex, answerIndex, err := parseAnswerData(data)
		if err != nil {
			b.logger.Debug().Err(err).Str("data", data).Msg("invalid answer callback")
			return
		}
		b.answer(ctx, chatID, questionIndex, answerIndex)
	case strings.HasPrefix(data, quitPrefix):
		b.quit(ctx, chatID, strings.TrimPrefix(data, quitPrefix) == "yes")
	case data == retryData:
		b.retry(ctx, chatID)
	default:
		b.logger.Debug().Str("data", data).Msg("unknown callback")
	}
}

func (b *Bot) sendSubjects(ctx context.Context, chatID int64) {
	list, err := b.service.ListSubjects(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("list subjects")
		b.sendText(chatID, "Sorry, the quizzes could not be loaded. Please try again later.")
		return
	}
	if len(list) == 0 {
		b.sendText(chatID, "No quizzes available right now.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, formatSubjects(list))
	msg.ReplyMarkup = subjectKeyboard(list)
	b.send(msg)
}

func (b *Bot) sendScores(ctx context.Context, chatID int64, user string) {
	scores, err := b.service.Scores(ctx, user)
	if err != nil {
		b.logger.Error().Err(err).Msg("load scores")
		b.sendText(chatID, "Sorry, your scores could not be loaded.")
		return
	}
	b.sendText(chatID, formatScores(scores))
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, user, subjectID string) {
	progress, err := b.service.Start(ctx, user, subjectID)
	if err != nil {
		b.reportError(chatID, err)
		return
	}
	b.follow(ctx, chatID, progress.SessionID)
}

// follow replaces the chat's session and relays its snapshots.
func (b *Bot) follow(ctx context.Context, chatID int64, sessionID string) {
	updates, cancel, err := b.service.Subscribe(ctx, sessionID)
	if err != nil {
		b.reportError(chatID, err)
		return
	}

	b.mu.Lock()
	previous := b.sessions[chatID]
	b.sessions[chatID] = &chatSession{id: sessionID, cancel: cancel}
	b.mu.Unlock()
	if previous != nil {
		previous.cancel()
		if previous.id != sessionID {
			b.service.Close(ctx, previous.id)
		}
	}

	go func() {
		for progress := range updates {
			b.sendProgress(chatID, progress)
		}
	}()
}

func (b *Bot) answer(ctx context.Context, chatID int64, questionIndex, answerIndex int) {
	sessionID := b.current(chatID)
	if sessionID == "" {
		b.sendText(chatID, "No quiz is running. Use /subjects to pick one.")
		return
	}
	progress, err := b.service.Progress(ctx, sessionID)
	if err != nil {
		b.reportError(chatID, err)
		return
	}
	if progress.Question == nil || progress.QuestionIndex != questionIndex {
		// button from an earlier question
		return
	}
	if answerIndex < 0 || answerIndex >= len(progress.Question.Answers) {
		return
	}

	result, err := b.service.SubmitAnswer(ctx, sessionID, progress.Question.Answers[answerIndex])
	if err != nil {
		if !errors.Is(err, domain.ErrSelectionLocked) {
			b.reportError(chatID, err)
		}
		return
	}
	b.sendText(chatID, formatAnswer(result))

	if b.service.Lockout() <= 0 {
		if _, err := b.service.Advance(ctx, sessionID); err != nil {
			b.reportError(chatID, err)
		}
	}
}

func (b *Bot) quit(ctx context.Context, chatID int64, confirm bool) {
	sessionID := b.current(chatID)
	if sessionID == "" {
		return
	}
	outcome := domain.AlertCancelled
	if confirm {
		outcome = domain.AlertConfirmed
	}
	closed, err := b.service.Quit(ctx, sessionID, outcome)
	if err != nil {
		b.reportError(chatID, err)
		return
	}
	if !closed {
		b.sendText(chatID, "Carry on!")
		return
	}
	b.forget(chatID)
	b.sendText(chatID, "Quiz abandoned. Use /subjects to start another one.")
}

func (b *Bot) retry(ctx context.Context, chatID int64) {
	sessionID := b.current(chatID)
	if sessionID == "" {
		b.sendText(chatID, "Nothing to retry. Use /subjects to pick a quiz.")
		return
	}
	progress, err := b.service.Retry(ctx, sessionID)
	if err != nil {
		b.reportError(chatID, err)
		return
	}
	b.follow(ctx, chatID, progress.SessionID)
}

func (b *Bot) sendProgress(chatID int64, progress domain.Progress) {
	if progress.State == domain.StateCompleted {
		msg := tgbotapi.NewMessage(chatID, formatCompletion(progress))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Try again", retryData)),
		)
		b.send(msg)
		return
	}
	if progress.Question == nil || progress.State != domain.StatePresenting {
		return
	}
	msg := tgbotapi.NewMessage(chatID, formatQuestion(progress))
	msg.ReplyMarkup = answerKeyboard(*progress.Question)
	b.send(msg)
}

func (b *Bot) reportError(chatID int64, err error) {
	b.logger.Debug().Err(err).Int64("chat", chatID).Msg("quiz action failed")
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound):
		b.sendText(chatID, "That quiz is no longer available.")
	case errors.Is(err, domain.ErrSubjectNotPlayable):
		b.sendText(chatID, "That quiz has no questions yet.")
	case errors.Is(err, domain.ErrSessionNotFound):
		b.forget(chatID)
		b.sendText(chatID, "This quiz has ended. Use /subjects to start another one.")
	case errors.Is(err, domain.ErrSessionNotCompleted):
		b.sendText(chatID, "Finish the current quiz first, or /quit it.")
	default:
		b.sendText(chatID, "Something went wrong. Please try again.")
	}
}

func (b *Bot) current(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[chatID]; ok {
		return s.id
	}
	return ""
}

func (b *Bot) forget(chatID int64) {
	b.mu.Lock()
	s := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()
	if s != nil {
		s.cancel()
	}
}

func (b *Bot) closeAll() {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[int64]*chatSession)
	b.mu.Unlock()
	for _, s := range sessions {
		s.cancel()
		b.service.Close(context.Background(), s.id)
	}
}

func (b *Bot) ack(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.logger.Debug().Err(err).Msg("callback ack failed")
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Msg("telegram send failed")
	}
}

func userID(from *tgbotapi.User, chatID int64) string {
	if from != nil {
		return "tg:" + strconv.FormatInt(from.ID, 10)
	}
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func parseAnswerData(data string) (questionIndex, answerIndex int, err error) {
	parts := strings.Split(strings.TrimPrefix(data, answerPrefix), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("answer callback %q: want two indices", data)
	}
	if questionIndex, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("answer callback %q: %w", data, err)
	}
	if answerIndex, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("answer callback %q: %w", data, err)
	}
	return questionIndex, answerIndex, nil
}
