package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizzapp-service/internal/domain"
	"quizzapp-service/internal/metrics"
)

// DefaultLockout is the pause between an answer and the next question.
const DefaultLockout = time.Second

// SubjectRepository serves the fetched subject list (from cache/backing store).
type SubjectRepository interface {
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	GetSubject(ctx context.Context, subjectID string) (domain.Subject, error)
}

// SessionRepository abstracts where running sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// ScoreRecorder receives final scores and aggregates them per user and subject.
type ScoreRecorder interface {
	Record(ctx context.Context, rec domain.ScoreRecord) error
	Scores(ctx context.Context, userID string) ([]domain.ScoreSummary, error)
}

type Options struct {
	// Lockout is how long selection stays locked after an answer before the
	// session advances on its own. Zero disables the automatic advance.
	Lockout   time.Duration
	Scheduler Scheduler
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	NewID     func() string
}

// QuizService contains the quiz use cases.
type QuizService struct {
	subjects  SubjectRepository
	sessions  SessionRepository
	scores    ScoreRecorder
	lockout   time.Duration
	scheduler Scheduler
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	newID     func() string
}

func NewQuizService(subjects SubjectRepository, sessions SessionRepository, scores ScoreRecorder, opts Options) *QuizService {
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &QuizService{
		subjects:  subjects,
		sessions:  sessions,
		scores:    scores,
		lockout:   opts.Lockout,
		scheduler: scheduler,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		newID:     newID,
	}
}

// Lockout reports the configured automatic advance delay.
func (s *QuizService) Lockout() time.Duration {
	return s.lockout
}

func (s *QuizService) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.subjects.ListSubjects(ctx)
}

func (s *QuizService) GetSubject(ctx context.Context, subjectID string) (domain.Subject, error) {
	return s.subjects.GetSubject(ctx, subjectID)
}

// Start creates a session for the selected subject.
func (s *QuizService) Start(ctx context.Context, userID, subjectID string) (domain.Progress, error) {
	subject, err := s.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return domain.Progress{}, err
	}

	session, err := NewSession(s.newID(), userID, subject)
	if err != nil {
		s.logger.Warn().Str("subject", subjectID).Msg("subject cannot be played")
		return domain.Progress{}, err
	}
	s.sessions.Put(session)

	s.logger.Debug().
		Str("session", session.ID()).
		Str("user", userID).
		Str("subject", subjectID).
		Msg("session started")
	return session.Progress(), nil
}

// SubmitAnswer records the selection and, with a lockout configured, schedules the advance.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID, selected string) (domain.AnswerResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}

	result, err := session.SubmitAnswer(selected)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.metrics.ObserveAnswer(result.Correct)

	if s.lockout > 0 {
		index := result.QuestionIndex
		session.schedule(s.scheduler.AfterFunc(s.lockout, func() {
			if _, err := s.advanceScheduled(session, index); err != nil && !errors.Is(err, domain.ErrNotAnswered) {
				s.logger.Debug().Err(err).Str("session", session.ID()).Msg("scheduled advance skipped")
			}
		}))
	}
	return result, nil
}

// Advance moves the session forward after an answer.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (domain.Progress, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	return s.advance(ctx, session)
}

func (s *QuizService) advance(ctx context.Context, session *Session) (domain.Progress, error) {
	if session.isClosed() {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	progress, completed, err := session.Advance()
	return s.afterAdvance(ctx, session, progress, completed, err)
}

// advanceScheduled is the lockout timer's advance for the answer at index.
func (s *QuizService) advanceScheduled(session *Session, index int) (domain.Progress, error) {
	if session.isClosed() {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	progress, completed, err := session.advanceFrom(index)
	return s.afterAdvance(context.Background(), session, progress, completed, err)
}

func (s *QuizService) afterAdvance(ctx context.Context, session *Session, progress domain.Progress, completed bool, err error) (domain.Progress, error) {
	if err != nil {
		return domain.Progress{}, err
	}
	if completed {
		s.complete(ctx, session)
	}
	return progress, nil
}

func (s *QuizService) complete(ctx context.Context, session *Session) {
	rec := session.Record()
	s.metrics.ObserveCompletion(rec.SubjectID)
	s.logger.Info().
		Str("session", session.ID()).
		Str("user", rec.UserID).
		Str("subject", rec.SubjectID).
		Int("score", rec.Score).
		Int("questions", rec.QuestionCount).
		Msg("session completed")

	if s.scores == nil {
		return
	}
	if err := s.scores.Record(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("session", session.ID()).Msg("failed to record score")
	}
}

// Subscribe returns a channel of progress snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Progress, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Progress returns the current snapshot of a session.
func (s *QuizService) Progress(_ context.Context, sessionID string) (domain.Progress, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	return session.Progress(), nil
}

// Quit handles the quit prompt outcome. A confirmed quit discards the session
// without recording a score; a cancelled one leaves it untouched.
func (s *QuizService) Quit(_ context.Context, sessionID string, outcome domain.AlertOutcome) (bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if outcome != domain.AlertConfirmed {
		return false, nil
	}
	s.close(session)
	return true, nil
}

// Close discards a session, e.g. when its connection goes away.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	if session, ok := s.sessions.Get(sessionID); ok {
		s.close(session)
	}
}

func (s *QuizService) close(session *Session) {
	session.Close()
	s.sessions.Delete(session.ID())
}

// Retry replaces a completed session with a fresh one on the same subject.
func (s *QuizService) Retry(ctx context.Context, sessionID string) (domain.Progress, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	if session.Progress().State != domain.StateCompleted {
		return domain.Progress{}, domain.ErrSessionNotCompleted
	}
	s.close(session)
	return s.Start(ctx, session.UserID(), session.Subject().ID)
}

// Scores lists the aggregated results of a user.
func (s *QuizService) Scores(ctx context.Context, userID string) ([]domain.ScoreSummary, error) {
	if s.scores == nil {
		return []domain.ScoreSummary{}, nil
	}
	return s.scores.Scores(ctx, userID)
}
