package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiniela-service/internal/domain"
)

// Service contains the quiniela use cases: registration and prediction
// submission on the participant side, answer marking and settings on the
// operator side, and leaderboard reads for everyone.
type Service struct {
	store   GameStore
	answers AnswerCache
	catalog *domain.Catalog
	hub     *Hub
	now     func() time.Time
	newID   func() string
}

func NewService(store GameStore, answers AnswerCache, catalog *domain.Catalog, hub *Hub) *Service {
	return &Service{
		store:   store,
		answers: answers,
		catalog: catalog,
		hub:     hub,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// NewServiceWithClock is test-only for deterministic timestamps and ids.
func NewServiceWithClock(store GameStore, answers AnswerCache, catalog *domain.Catalog, hub *Hub, now func() time.Time, newID func() string) *Service {
	s := NewService(store, answers, catalog, hub)
	s.now = now
	s.newID = newID
	return s
}

// LeaderboardView is the full read-path response: the ranked entries plus
// the settings and, only when the operator made them visible, the declared
// correct answers.
type LeaderboardView struct {
	Leaderboard       []domain.LeaderboardEntry `json:"leaderboard"`
	Settings          domain.GameSettings       `json:"settings"`
	CorrectAnswers    map[int]string            `json:"correctAnswers"`
	TotalParticipants int                       `json:"totalParticipants"`
	AnsweredQuestions int                       `json:"answeredQuestions"`
}

// LeaderboardUpdate is the payload broadcast after every answer mutation.
// Viewers always receive a complete snapshot, never a delta.
type LeaderboardUpdate struct {
	Leaderboard       []domain.LeaderboardEntry `json:"leaderboard"`
	CorrectAnswers    map[int]string            `json:"correctAnswers"`
	AnsweredQuestions int                       `json:"answeredQuestions"`
	UpdatedQuestion   int                       `json:"updatedQuestion"`
}

// NicknameStatus reports whether a nickname is taken and protected by a PIN.
type NicknameStatus struct {
	Exists bool `json:"exists"`
	HasPIN bool `json:"hasPin,omitempty"`
}

// Completion reports a participant's progress over the catalog.
type Completion struct {
	Complete bool `json:"complete"`
	Count    int  `json:"count"`
	Total    int  `json:"total"`
}

// CheckNickname probes for an existing registration, case-insensitively.
func (s *Service) CheckNickname(ctx context.Context, nickname string) (NicknameStatus, error) {
	nickname = strings.TrimSpace(nickname)
	if len(nickname) < 2 {
		return NicknameStatus{}, domain.ErrInvalidNickname
	}
	p, err := s.store.ParticipantByNickname(ctx, nickname)
	if err == domain.ErrParticipantNotFound {
		return NicknameStatus{Exists: false}, nil
	}
	if err != nil {
		return NicknameStatus{}, err
	}
	return NicknameStatus{Exists: true, HasPIN: p.PINHash != ""}, nil
}

// Register creates a participant and seeds an absent prediction for every
// catalog question, atomically. Rejected once predictions are locked.
func (s *Service) Register(ctx context.Context, nickname, pin string) (domain.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if len(nickname) < 2 || len(nickname) > 20 {
		return domain.Participant{}, domain.ErrInvalidNickname
	}
	if !validPIN(pin) {
		return domain.Participant{}, domain.ErrInvalidPIN
	}
	if err := s.ensureUnlocked(ctx); err != nil {
		return domain.Participant{}, err
	}
	if _, err := s.store.ParticipantByNickname(ctx, nickname); err == nil {
		return domain.Participant{}, domain.ErrNicknameTaken
	} else if err != domain.ErrParticipantNotFound {
		return domain.Participant{}, err
	}

	p := domain.Participant{
		ID:        s.newID(),
		Nickname:  nickname,
		PINHash:   hashPIN(pin),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateParticipant(ctx, p, s.questionIDs()); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

// Login verifies nickname+PIN. A participant without a stored PIN adopts the
// offered one; participants from before a catalog change get their missing
// prediction rows backfilled.
func (s *Service) Login(ctx context.Context, nickname, pin string) (domain.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || pin == "" {
		return domain.Participant{}, domain.ErrInvalidPIN
	}
	p, err := s.store.ParticipantByNickname(ctx, nickname)
	if err != nil {
		return domain.Participant{}, err
	}

	if p.PINHash == "" {
		if err := s.store.SetParticipantPIN(ctx, p.ID, hashPIN(pin)); err != nil {
			return domain.Participant{}, err
		}
	} else if hashPIN(pin) != p.PINHash {
		return domain.Participant{}, domain.ErrPINMismatch
	}

	if err := s.store.SeedMissingPredictions(ctx, p.ID, s.questionIDs()); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

// SubmitPredictions upserts a batch of answers for one participant. The
// whole batch is validated against the catalog and the lock up front; a
// failed batch leaves every previously saved answer untouched.
func (s *Service) SubmitPredictions(ctx context.Context, participantID string, answers map[int]string) error {
	if participantID == "" || len(answers) == 0 {
		return fmt.Errorf("participant id and predictions required")
	}
	if err := s.ensureUnlocked(ctx); err != nil {
		return err
	}
	if _, err := s.store.ParticipantByID(ctx, participantID); err != nil {
		return err
	}
	for questionID, value := range answers {
		if _, ok := s.catalog.Question(questionID); !ok {
			return domain.ErrQuestionNotFound
		}
		if !s.catalog.HasOption(questionID, value) {
			return domain.ErrOptionNotFound
		}
	}
	return s.store.SavePredictions(ctx, participantID, answers)
}

// PredictionsFor returns the participant's answer per question, absent ones
// included as nil.
func (s *Service) PredictionsFor(ctx context.Context, participantID string) (map[int]*string, error) {
	predictions, err := s.store.Predictions(ctx, participantID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]*string, len(predictions))
	for _, p := range predictions {
		out[p.QuestionID] = p.Answer
	}
	return out, nil
}

// CompletionFor reports how many catalog questions the participant has
// answered and whether the set is complete.
func (s *Service) CompletionFor(ctx context.Context, participantID string) (Completion, error) {
	predictions, err := s.store.Predictions(ctx, participantID)
	if err != nil {
		return Completion{}, err
	}
	count := 0
	for _, p := range predictions {
		if p.Answer != nil {
			count++
		}
	}
	total := s.catalog.Size()
	return Completion{Complete: count >= total, Count: count, Total: total}, nil
}

// Leaderboard rebuilds the ranked leaderboard from one consistent snapshot.
func (s *Service) Leaderboard(ctx context.Context) (LeaderboardView, error) {
	snapshot, err := s.store.LeaderboardSnapshot(ctx)
	if err != nil {
		return LeaderboardView{}, err
	}
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return LeaderboardView{}, err
	}

	lb := s.build(snapshot)
	visible := map[int]string{}
	if settings.AnswersVisible {
		visible = plainAnswers(snapshot.CorrectAnswers)
	}
	return LeaderboardView{
		Leaderboard:       lb.Entries,
		Settings:          settings,
		CorrectAnswers:    visible,
		TotalParticipants: lb.TotalParticipants,
		AnsweredQuestions: lb.AnsweredQuestions,
	}, nil
}

// UserPosition finds the participant's ranked entry, or ErrNotRanked when
// their prediction set is incomplete.
func (s *Service) UserPosition(ctx context.Context, participantID string) (domain.LeaderboardEntry, error) {
	snapshot, err := s.store.LeaderboardSnapshot(ctx)
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}
	for _, entry := range s.build(snapshot).Entries {
		if entry.ParticipantID == participantID {
			return entry, nil
		}
	}
	return domain.LeaderboardEntry{}, domain.ErrNotRanked
}

// MarkCorrectAnswer declares the correct value for a question, then
// recomputes and broadcasts the leaderboard as one causal unit. Nothing is
// broadcast when persistence fails.
func (s *Service) MarkCorrectAnswer(ctx context.Context, questionID int, value string) (LeaderboardUpdate, error) {
	if _, ok := s.catalog.Question(questionID); !ok {
		return LeaderboardUpdate{}, domain.ErrQuestionNotFound
	}
	if !s.catalog.HasOption(questionID, value) {
		return LeaderboardUpdate{}, domain.ErrOptionNotFound
	}
	if err := s.store.UpsertCorrectAnswer(ctx, questionID, value); err != nil {
		return LeaderboardUpdate{}, err
	}
	return s.recomputeAndBroadcast(ctx, questionID)
}

// RemoveCorrectAnswer undeclares a question, restoring every score to what
// it would be had the question never been marked.
func (s *Service) RemoveCorrectAnswer(ctx context.Context, questionID int) (LeaderboardUpdate, error) {
	if _, ok := s.catalog.Question(questionID); !ok {
		return LeaderboardUpdate{}, domain.ErrQuestionNotFound
	}
	if err := s.store.DeleteCorrectAnswer(ctx, questionID); err != nil {
		return LeaderboardUpdate{}, err
	}
	return s.recomputeAndBroadcast(ctx, questionID)
}

func (s *Service) recomputeAndBroadcast(ctx context.Context, updatedQuestion int) (LeaderboardUpdate, error) {
	if err := s.answers.Invalidate(ctx); err != nil {
		return LeaderboardUpdate{}, err
	}
	snapshot, err := s.store.LeaderboardSnapshot(ctx)
	if err != nil {
		return LeaderboardUpdate{}, err
	}
	lb := s.build(snapshot)
	update := LeaderboardUpdate{
		Leaderboard:       lb.Entries,
		CorrectAnswers:    plainAnswers(snapshot.CorrectAnswers),
		AnsweredQuestions: lb.AnsweredQuestions,
		UpdatedQuestion:   updatedQuestion,
	}
	s.hub.Publish(EventLeaderboardUpdate, update)
	return update, nil
}

// UpdateSettings applies a partial settings change and broadcasts the new
// values to every live viewer.
func (s *Service) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.GameSettings, error) {
	settings, err := s.store.UpdateSettings(ctx, patch)
	if err != nil {
		return domain.GameSettings{}, err
	}
	s.hub.Publish(EventSettingsUpdate, settings)
	return settings, nil
}

// Settings returns the current operator flags.
func (s *Service) Settings(ctx context.Context) (domain.GameSettings, error) {
	return s.store.Settings(ctx)
}

// CorrectAnswers returns the full declared map (operator view), served
// through the answer cache.
func (s *Service) CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error) {
	return s.answers.CorrectAnswers(ctx)
}

// PublicAnswers returns the declared map only once the operator made
// answers visible; otherwise an empty map.
func (s *Service) PublicAnswers(ctx context.Context) (map[int]string, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AnswersVisible {
		return map[int]string{}, nil
	}
	declared, err := s.answers.CorrectAnswers(ctx)
	if err != nil {
		return nil, err
	}
	return plainAnswers(declared), nil
}

// ListParticipants returns every participant with their predictions,
// completeness aside (admin view).
func (s *Service) ListParticipants(ctx context.Context) ([]domain.ParticipantDetail, error) {
	return s.store.ListParticipants(ctx)
}

// ParticipantCount reports the number of registered participants.
func (s *Service) ParticipantCount(ctx context.Context) (int, error) {
	return s.store.ParticipantCount(ctx)
}

// DeleteParticipant removes a participant and cascades to their predictions.
func (s *Service) DeleteParticipant(ctx context.Context, participantID string) (string, error) {
	return s.store.DeleteParticipant(ctx, participantID)
}

// ResetPIN replaces a participant's PIN (operator action).
func (s *Service) ResetPIN(ctx context.Context, participantID, newPIN string) error {
	if !validPIN(newPIN) {
		return domain.ErrInvalidPIN
	}
	if _, err := s.store.ParticipantByID(ctx, participantID); err != nil {
		return err
	}
	return s.store.SetParticipantPIN(ctx, participantID, hashPIN(newPIN))
}

// Distributions returns the anonymous answer histogram per question with
// percentages rounded to one decimal.
func (s *Service) Distributions(ctx context.Context) (map[int]domain.Distribution, int, error) {
	counts, err := s.store.AnswerCounts(ctx)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.ParticipantCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	distributions := make(map[int]domain.Distribution, len(counts))
	for questionID, byValue := range counts {
		dist := domain.Distribution{Options: make(map[string]domain.OptionCount, len(byValue))}
		for _, n := range byValue {
			dist.Total += n
		}
		for value, n := range byValue {
			pct := 0.0
			if dist.Total > 0 {
				pct = math.Round(float64(n)/float64(dist.Total)*1000) / 10
			}
			dist.Options[value] = domain.OptionCount{Count: n, Percentage: pct}
		}
		distributions[questionID] = dist
	}
	return distributions, total, nil
}

// Catalog exposes the static question list.
func (s *Service) Catalog() *domain.Catalog { return s.catalog }

func (s *Service) ensureUnlocked(ctx context.Context) error {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return err
	}
	if settings.PredictionsLocked {
		return domain.ErrPredictionsLocked
	}
	return nil
}

func (s *Service) build(snapshot Snapshot) domain.Leaderboard {
	return buildLeaderboard(snapshot.Participants, snapshot.CorrectAnswers, s.catalog.Size(), s.catalog.WinnerQuestionID())
}

func (s *Service) questionIDs() []int {
	questions := s.catalog.Questions()
	ids := make([]int, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func plainAnswers(declared map[int]domain.CorrectAnswer) map[int]string {
	out := make(map[int]string, len(declared))
	for questionID, ca := range declared {
		out[questionID] = ca.Answer
	}
	return out
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
