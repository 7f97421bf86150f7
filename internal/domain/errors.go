package domain

import "errors"

var (
	// ErrPredictionsLocked is returned when a write arrives after the operator locked the game.
	ErrPredictionsLocked = errors.New("predictions are locked")
	// ErrParticipantNotFound is returned when an operation references an unknown participant.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrNicknameTaken indicates a registration with an already-used nickname (case-insensitive).
	ErrNicknameTaken = errors.New("nickname already registered")
	// ErrQuestionNotFound indicates a question id outside the catalog.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an answer value that is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidPIN indicates a PIN that is not exactly four digits.
	ErrInvalidPIN = errors.New("pin must be four digits")
	// ErrPINMismatch indicates a login attempt with the wrong PIN.
	ErrPINMismatch = errors.New("pin mismatch")
	// ErrInvalidNickname indicates a nickname outside the allowed length.
	ErrInvalidNickname = errors.New("nickname must be 2-20 characters")
	// ErrNotRanked indicates the participant is not on the ranked leaderboard (incomplete predictions).
	ErrNotRanked = errors.New("participant not in ranked leaderboard")
)
