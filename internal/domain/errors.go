package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or was closed.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSubjectNotFound indicates the subject id is not part of the fetched list.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrSubjectNotPlayable is returned for subjects without questions or with a question lacking answers.
	ErrSubjectNotPlayable = errors.New("subject is not playable")
	// ErrAnswerNotOffered indicates the submitted text is not one of the current answers.
	ErrAnswerNotOffered = errors.New("answer is not offered for the current question")
	// ErrSelectionLocked is returned when an answer arrives before the session advanced.
	ErrSelectionLocked = errors.New("selection is locked until the quiz advances")
	// ErrNotAnswered is returned when advancing a question that has not been answered.
	ErrNotAnswered = errors.New("current question has not been answered")
	// ErrSessionCompleted is returned for any transition after completion.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrSessionNotCompleted is returned when retrying a session that is still running.
	ErrSessionNotCompleted = errors.New("quiz session not completed")
)
