package domain

import "time"

// Participant is a registered player in the pool.
type Participant struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prediction is a participant's chosen answer for one question.
// Answer is nil until the participant picks an option; a record exists
// for every catalog question from registration onward.
type Prediction struct {
	ParticipantID string  `json:"participantId"`
	QuestionID    int     `json:"questionId"`
	Answer        *string `json:"answer"`
}

// CorrectAnswer is the operator-declared correct value for one question.
type CorrectAnswer struct {
	QuestionID int       `json:"questionId"`
	Answer     string    `json:"answer"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GameSettings is the singleton pair of operator flags for the event.
type GameSettings struct {
	PredictionsLocked bool `json:"predictionsLocked"`
	AnswersVisible    bool `json:"answersVisible"`
}

// SettingsPatch carries a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	PredictionsLocked *bool `json:"predictionsLocked"`
	AnswersVisible    *bool `json:"answersVisible"`
}

// LeaderboardEntry is a scored, positioned view of one eligible participant.
type LeaderboardEntry struct {
	ParticipantID string    `json:"id"`
	Nickname      string    `json:"nickname"`
	Score         int       `json:"score"`
	CorrectCount  int       `json:"correctCount"`
	AnsweredCount int       `json:"answeredCount"`
	CompletedAt   time.Time `json:"completedAt"`
	Position      int       `json:"position"`
}

// Leaderboard is the full ranked snapshot broadcast to live viewers.
type Leaderboard struct {
	Entries           []LeaderboardEntry `json:"leaderboard"`
	TotalParticipants int                `json:"totalParticipants"`
	AnsweredQuestions int                `json:"answeredQuestions"`
}

// ParticipantDetail is the admin view: a participant with every prediction row.
type ParticipantDetail struct {
	Participant
	Predictions []Prediction `json:"predictions"`
}

// OptionCount is one bucket of an answer distribution.
type OptionCount struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Distribution is the anonymous answer histogram for one question.
type Distribution struct {
	Total   int                    `json:"total"`
	Options map[string]OptionCount `json:"options"`
}
