package app

import (
	"context"

	"quiniela-service/internal/domain"
)

// Snapshot is one consistent read of everything the leaderboard needs.
// Implementations must not mix pre- and post-edit correct answers within a
// single snapshot (single transaction in postgres, single lock hold in
// memory).
type Snapshot struct {
	Participants   []domain.ParticipantDetail
	CorrectAnswers map[int]domain.CorrectAnswer
}

// GameStore abstracts durable access to participants, predictions, correct
// answers and settings (in-memory, postgres).
type GameStore interface {
	// CreateParticipant stores the participant and seeds an absent
	// prediction row for every given question id, atomically.
	CreateParticipant(ctx context.Context, p domain.Participant, questionIDs []int) error
	ParticipantByID(ctx context.Context, id string) (domain.Participant, error)
	ParticipantByNickname(ctx context.Context, nickname string) (domain.Participant, error)
	ListParticipants(ctx context.Context) ([]domain.ParticipantDetail, error)
	ParticipantCount(ctx context.Context) (int, error)
	SetParticipantPIN(ctx context.Context, id, pinHash string) error
	// DeleteParticipant removes the participant and all of their
	// predictions atomically, returning the deleted nickname.
	DeleteParticipant(ctx context.Context, id string) (string, error)

	Predictions(ctx context.Context, participantID string) ([]domain.Prediction, error)
	// SavePredictions upserts the batch in one transaction; either every
	// answer lands or none does.
	SavePredictions(ctx context.Context, participantID string, answers map[int]string) error
	// SeedMissingPredictions backfills absent rows for participants created
	// before the catalog reached its current size.
	SeedMissingPredictions(ctx context.Context, participantID string, questionIDs []int) error
	// AnswerCounts tallies non-absent answers per question and value.
	AnswerCounts(ctx context.Context) (map[int]map[string]int, error)

	CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error)
	UpsertCorrectAnswer(ctx context.Context, questionID int, answer string) error
	DeleteCorrectAnswer(ctx context.Context, questionID int) error

	Settings(ctx context.Context) (domain.GameSettings, error)
	UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.GameSettings, error)

	LeaderboardSnapshot(ctx context.Context) (Snapshot, error)
}

// AnswerCache fronts read-heavy correct-answer lookups (redis, or a
// pass-through when redis is not configured). Mutation paths bypass it and
// invalidate it so recomputations never see a stale map.
type AnswerCache interface {
	CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error)
	Invalidate(ctx context.Context) error
}
