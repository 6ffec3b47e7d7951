package app

import (
	"sync"
	"time"

	"quizzapp-service/internal/domain"
)

// Session is one user's pass through a subject's questions.
//
//	presenting(i) --SubmitAnswer--> answered(i) --Advance--> presenting(i+1)
//	answered(n-1) --Advance--> completed
type Session struct {
	id        string
	userID    string
	subject   domain.Subject
	createdAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	index      int
	score      int
	state      domain.State
	lastAnswer *domain.AnswerResult
	pending    func() bool
	closed     bool

	subscribers map[chan domain.Progress]struct{}
}

// NewSession validates that the subject can be played and positions the session on the first question.
func NewSession(id, userID string, subject domain.Subject) (*Session, error) {
	return NewSessionWithClock(id, userID, subject, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, userID string, subject domain.Subject, now func() time.Time) (*Session, error) {
	if len(subject.Questions) == 0 {
		return nil, domain.ErrSubjectNotPlayable
	}
	for _, q := range subject.Questions {
		if len(q.Answers) == 0 {
			return nil, domain.ErrSubjectNotPlayable
		}
	}
	return &Session{
		id:          id,
		userID:      userID,
		subject:     subject,
		createdAt:   now(),
		now:         now,
		state:       domain.StatePresenting,
		subscribers: make(map[chan domain.Progress]struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.userID }

func (s *Session) Subject() domain.Subject { return s.subject }

// SubmitAnswer checks the selected text against the current question.
func (s *Session) SubmitAnswer(selected string) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateAnswered:
		return domain.AnswerResult{}, domain.ErrSelectionLocked
	case domain.StateCompleted:
		return domain.AnswerResult{}, domain.ErrSessionCompleted
	}

	// any text other than the correct answer, offered or not, counts as wrong
	question := s.subject.Questions[s.index]
	correct := question.IsCorrect(selected)
	awarded := 0
	if correct {
		awarded = 1
		s.score += awarded
	}
	result := domain.AnswerResult{
		QuestionIndex: s.index,
		Selected:      selected,
		Correct:       correct,
		CorrectAnswer: question.CorrectAnswer,
		Awarded:       awarded,
		TotalScore:    s.score,
	}
	s.lastAnswer = &result
	s.state = domain.StateAnswered
	return result, nil
}

// Advance moves to the next question or completes the session.
// completed is true only for the transition into the completed state.
func (s *Session) Advance() (progress domain.Progress, completed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

// advanceFrom advances only while question index is still the answered one.
// A timer scheduled for an earlier question gets ErrNotAnswered.
func (s *Session) advanceFrom(index int) (domain.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateAnswered || s.index != index {
		return domain.Progress{}, false, domain.ErrNotAnswered
	}
	return s.advanceLocked()
}

func (s *Session) advanceLocked() (progress domain.Progress, completed bool, err error) {
	switch s.state {
	case domain.StatePresenting:
		return domain.Progress{}, false, domain.ErrNotAnswered
	case domain.StateCompleted:
		return domain.Progress{}, false, domain.ErrSessionCompleted
	}

	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	if s.index < len(s.subject.Questions)-1 {
		s.index++
		s.state = domain.StatePresenting
		s.lastAnswer = nil
	} else {
		s.state = domain.StateCompleted
		completed = true
	}

	progress = s.snapshotLocked()
	s.broadcastLocked(progress)
	return progress, completed, nil
}

// Progress returns the current snapshot.
func (s *Session) Progress() domain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Score returns the accumulated score.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Record builds the completion record; only meaningful once completed.
func (s *Session) Record() domain.ScoreRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ScoreRecord{
		UserID:        s.userID,
		SubjectID:     s.subject.ID,
		SubjectTitle:  s.subject.Title,
		Score:         s.score,
		QuestionCount: len(s.subject.Questions),
		CompletedAt:   s.now(),
	}
}

// schedule stores the cancel func of the pending advance.
func (s *Session) schedule(cancel func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return
	}
	s.pending = cancel
}

// Close cancels a pending advance and releases subscribers. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) subscribe() (<-chan domain.Progress, func()) {
	ch := make(chan domain.Progress, 4)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(progress domain.Progress) {
	for ch := range s.subscribers {
		select {
		case ch <- progress:
		default:
			// subscriber is behind; replace the oldest snapshot with the newest
			select {
			case <-ch:
			default:
			}
			ch <- progress
		}
	}
}

func (s *Session) snapshotLocked() domain.Progress {
	progress := domain.Progress{
		SessionID:     s.id,
		SubjectID:     s.subject.ID,
		SubjectTitle:  s.subject.Title,
		State:         s.state,
		QuestionIndex: s.index,
		QuestionCount: len(s.subject.Questions),
		Score:         s.score,
	}
	if s.state != domain.StateCompleted {
		q := s.subject.Questions[s.index]
		answers := make([]string, len(q.Answers))
		copy(answers, q.Answers)
		progress.Question = &domain.QuestionView{Index: s.index, Title: q.Title, Answers: answers}
	}
	if s.lastAnswer != nil {
		last := *s.lastAnswer
		progress.LastAnswer = &last
	}
	return progress
}
