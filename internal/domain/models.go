package domain

import "time"

// Question is one multiple-choice prompt of a subject.
type Question struct {
	Title         string   `json:"questionTitle" validate:"required"`
	Answers       []string `json:"answers"`
	CorrectAnswer string   `json:"correctAnswer"`
	SubjectIndex  int      `json:"subjectId"`
	QuestionIndex int      `json:"questionIndex"`
}

// IsCorrect compares the selected text with the correct answer byte for byte.
func (q Question) IsCorrect(selected string) bool {
	return selected == q.CorrectAnswer
}

// Subject is a quiz topic with an ordered list of questions.
type Subject struct {
	ID            string     `json:"id" validate:"required"`
	Title         string     `json:"quizTitle" validate:"required"`
	Description   string     `json:"quizDescription"`
	IconRef       string     `json:"quizIcon"`
	QuestionCount int        `json:"questionsCount"`
	Questions     []Question `json:"questions" validate:"dive"`
}

// Consistent reports whether the advertised question count matches the payload.
func (s Subject) Consistent() bool {
	return s.QuestionCount == len(s.Questions)
}

// SubjectSummary is the list view of a subject; questions are left out.
type SubjectSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	IconRef       string `json:"iconRef"`
	QuestionCount int    `json:"questionCount"`
}

// Summary projects a subject for listing.
func (s Subject) Summary() SubjectSummary {
	return SubjectSummary{
		ID:            s.ID,
		Title:         s.Title,
		Description:   s.Description,
		IconRef:       s.IconRef,
		QuestionCount: len(s.Questions),
	}
}

// State is the position of a session in the quiz progression.
type State string

const (
	StatePresenting State = "presenting"
	StateAnswered   State = "answered"
	StateCompleted  State = "completed"
)

// QuestionView is a question as shown to the player; the correct answer is withheld.
type QuestionView struct {
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	Answers []string `json:"answers"`
}

// Offers reports whether text is one of the displayed answers.
func (v QuestionView) Offers(text string) bool {
	for _, answer := range v.Answers {
		if answer == text {
			return true
		}
	}
	return false
}

// AnswerResult summarizes the outcome of one submission.
type AnswerResult struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Awarded       int    `json:"awarded"`
	TotalScore    int    `json:"totalScore"`
}

// Progress is a snapshot of a session for presentation.
type Progress struct {
	SessionID     string        `json:"sessionId"`
	SubjectID     string        `json:"subjectId"`
	SubjectTitle  string        `json:"subjectTitle"`
	State         State         `json:"state"`
	QuestionIndex int           `json:"questionIndex"`
	QuestionCount int           `json:"questionCount"`
	Score         int           `json:"score"`
	Question      *QuestionView `json:"question,omitempty"`
	LastAnswer    *AnswerResult `json:"lastAnswer,omitempty"`
}

// ScoreRecord is produced once when a session completes.
type ScoreRecord struct {
	UserID        string    `json:"userId"`
	SubjectID     string    `json:"subjectId"`
	SubjectTitle  string    `json:"subjectTitle"`
	Score         int       `json:"score"`
	QuestionCount int       `json:"questionCount"`
	CompletedAt   time.Time `json:"completedAt"`
}

// ScoreSummary aggregates a user's completed attempts on one subject.
type ScoreSummary struct {
	SubjectID     string    `json:"subjectId"`
	SubjectTitle  string    `json:"subjectTitle"`
	BestScore     int       `json:"bestScore"`
	LastScore     int       `json:"lastScore"`
	QuestionCount int       `json:"questionCount"`
	Attempts      int       `json:"attempts"`
	LastPlayedAt  time.Time `json:"lastPlayedAt"`
}

// Apply folds a completed attempt into the summary.
func (s ScoreSummary) Apply(rec ScoreRecord) ScoreSummary {
	s.SubjectID = rec.SubjectID
	s.SubjectTitle = rec.SubjectTitle
	s.QuestionCount = rec.QuestionCount
	if s.Attempts == 0 || rec.Score > s.BestScore {
		s.BestScore = rec.Score
	}
	s.LastScore = rec.Score
	s.LastPlayedAt = rec.CompletedAt
	s.Attempts++
	return s
}

// AlertOutcome is the single result of a confirmation prompt.
type AlertOutcome int

const (
	AlertCancelled AlertOutcome = iota
	AlertConfirmed
)

func (o AlertOutcome) String() string {
	if o == AlertConfirmed {
		return "confirmed"
	}
	return "cancelled"
}
