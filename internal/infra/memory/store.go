package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quiniela-service/internal/app"
	"quiniela-service/internal/domain"
)

// Store is an in-memory implementation of app.GameStore, used when no
// postgres url is configured and throughout the tests. A single RWMutex
// stands in for the database's transaction isolation: every multi-step
// write and every leaderboard snapshot happens under one lock hold.
type Store struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
	byNickname   map[string]string
	predictions  map[string]map[int]*string
	correct      map[int]domain.CorrectAnswer
	settings     domain.GameSettings
}

func NewStore() *Store {
	return &Store{
		participants: make(map[string]domain.Participant),
		byNickname:   make(map[string]string),
		predictions:  make(map[string]map[int]*string),
		correct:      make(map[int]domain.CorrectAnswer),
	}
}

func (s *Store) CreateParticipant(_ context.Context, p domain.Participant, questionIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(p.Nickname)
	if _, ok := s.byNickname[key]; ok {
		return domain.ErrNicknameTaken
	}
	s.participants[p.ID] = p
	s.byNickname[key] = p.ID
	seeded := make(map[int]*string, len(questionIDs))
	for _, questionID := range questionIDs {
		seeded[questionID] = nil
	}
	s.predictions[p.ID] = seeded
	return nil
}

func (s *Store) ParticipantByID(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Store) ParticipantByNickname(_ context.Context, nickname string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNickname[strings.ToLower(strings.TrimSpace(nickname))]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return s.participants[id], nil
}

func (s *Store) ListParticipants(_ context.Context) ([]domain.ParticipantDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details := s.detailsLocked()
	sort.Slice(details, func(i, j int) bool {
		return details[i].CreatedAt.After(details[j].CreatedAt)
	})
	return details, nil
}

func (s *Store) ParticipantCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants), nil
}

func (s *Store) SetParticipantPIN(_ context.Context, id, pinHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.PINHash = pinHash
	s.participants[id] = p
	return nil
}

func (s *Store) DeleteParticipant(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return "", domain.ErrParticipantNotFound
	}
	delete(s.participants, id)
	delete(s.byNickname, strings.ToLower(p.Nickname))
	delete(s.predictions, id)
	return p.Nickname, nil
}

func (s *Store) Predictions(_ context.Context, participantID string) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answers, ok := s.predictions[participantID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return predictionRows(participantID, answers), nil
}

func (s *Store) SavePredictions(_ context.Context, participantID string, answers map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.predictions[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	for questionID, value := range answers {
		v := value
		existing[questionID] = &v
	}
	return nil
}

func (s *Store) SeedMissingPredictions(_ context.Context, participantID string, questionIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.predictions[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	for _, questionID := range questionIDs {
		if _, seeded := existing[questionID]; !seeded {
			existing[questionID] = nil
		}
	}
	return nil
}

func (s *Store) AnswerCounts(_ context.Context) (map[int]map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int]map[string]int)
	for _, answers := range s.predictions {
		for questionID, value := range answers {
			if value == nil {
				continue
			}
			if counts[questionID] == nil {
				counts[questionID] = make(map[string]int)
			}
			counts[questionID][*value]++
		}
	}
	return counts, nil
}

func (s *Store) CorrectAnswers(_ context.Context) (map[int]domain.CorrectAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAnswers(s.correct), nil
}

func (s *Store) UpsertCorrectAnswer(_ context.Context, questionID int, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correct[questionID] = domain.CorrectAnswer{QuestionID: questionID, Answer: answer, UpdatedAt: timeNow()}
	return nil
}

func (s *Store) DeleteCorrectAnswer(_ context.Context, questionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.correct, questionID)
	return nil
}

func (s *Store) Settings(_ context.Context) (domain.GameSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, patch domain.SettingsPatch) (domain.GameSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.PredictionsLocked != nil {
		s.settings.PredictionsLocked = *patch.PredictionsLocked
	}
	if patch.AnswersVisible != nil {
		s.settings.AnswersVisible = *patch.AnswersVisible
	}
	return s.settings, nil
}

func (s *Store) LeaderboardSnapshot(_ context.Context) (app.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return app.Snapshot{
		Participants:   s.detailsLocked(),
		CorrectAnswers: copyAnswers(s.correct),
	}, nil
}

func (s *Store) detailsLocked() []domain.ParticipantDetail {
	details := make([]domain.ParticipantDetail, 0, len(s.participants))
	for id, p := range s.participants {
		details = append(details, domain.ParticipantDetail{
			Participant: p,
			Predictions: predictionRows(id, s.predictions[id]),
		})
	}
	return details
}

func predictionRows(participantID string, answers map[int]*string) []domain.Prediction {
	rows := make([]domain.Prediction, 0, len(answers))
	for questionID, value := range answers {
		var answer *string
		if value != nil {
			v := *value
			answer = &v
		}
		rows = append(rows, domain.Prediction{ParticipantID: participantID, QuestionID: questionID, Answer: answer})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].QuestionID < rows[j].QuestionID })
	return rows
}

// timeNow is a seam for deterministic UpdatedAt stamps in tests.
var timeNow = time.Now

func copyAnswers(in map[int]domain.CorrectAnswer) map[int]domain.CorrectAnswer {
	out := make(map[int]domain.CorrectAnswer, len(in))
	for questionID, ca := range in {
		out[questionID] = ca
	}
	return out
}
