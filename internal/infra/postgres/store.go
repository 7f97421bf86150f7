package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiniela-service/internal/app"
	"quiniela-service/internal/domain"
)

// Store is the postgres implementation of app.GameStore. Multi-step writes
// (register with seeded predictions, batch submits, cascade deletes) run in
// a single transaction; the leaderboard snapshot reads participants,
// predictions and correct answers inside one transaction as well.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant, questionIDs []int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO participants (id, nickname, pin_hash, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Nickname, p.PINHash, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	for _, questionID := range questionIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO predictions (participant_id, question_id, answer) VALUES ($1, $2, NULL)`,
			p.ID, questionID)
		if err != nil {
			return fmt.Errorf("seed prediction: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ParticipantByID(ctx context.Context, id string) (domain.Participant, error) {
	return s.scanParticipant(ctx,
		`SELECT id, nickname, COALESCE(pin_hash, ''), created_at FROM participants WHERE id = $1`, id)
}

func (s *Store) ParticipantByNickname(ctx context.Context, nickname string) (domain.Participant, error) {
	return s.scanParticipant(ctx,
		`SELECT id, nickname, COALESCE(pin_hash, ''), created_at FROM participants WHERE LOWER(nickname) = LOWER($1)`, nickname)
}

func (s *Store) scanParticipant(ctx context.Context, query string, arg any) (domain.Participant, error) {
	var p domain.Participant
	err := s.pool.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Nickname, &p.PINHash, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return p, nil
}

func (s *Store) ListParticipants(ctx context.Context) ([]domain.ParticipantDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	details, err := listDetails(ctx, tx, `ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return details, tx.Commit(ctx)
}

func (s *Store) ParticipantCount(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

func (s *Store) SetParticipantPIN(ctx context.Context, id, pinHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE participants SET pin_hash = $1 WHERE id = $2`, pinHash, id)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) DeleteParticipant(ctx context.Context, id string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM predictions WHERE participant_id = $1`, id); err != nil {
		return "", fmt.Errorf("delete predictions: %w", err)
	}
	var nickname string
	err = tx.QueryRow(ctx, `DELETE FROM participants WHERE id = $1 RETURNING nickname`, id).Scan(&nickname)
	if err == pgx.ErrNoRows {
		return "", domain.ErrParticipantNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete participant: %w", err)
	}
	return nickname, tx.Commit(ctx)
}

func (s *Store) Predictions(ctx context.Context, participantID string) ([]domain.Prediction, error) {
	if _, err := s.ParticipantByID(ctx, participantID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, answer FROM predictions WHERE participant_id = $1 ORDER BY question_id`, participantID)
	if err != nil {
		return nil, fmt.Errorf("select predictions: %w", err)
	}
	defer rows.Close()

	var predictions []domain.Prediction
	for rows.Next() {
		p := domain.Prediction{ParticipantID: participantID}
		if err := rows.Scan(&p.QuestionID, &p.Answer); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func (s *Store) SavePredictions(ctx context.Context, participantID string, answers map[int]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for questionID, answer := range answers {
		_, err = tx.Exec(ctx,
			`INSERT INTO predictions (participant_id, question_id, answer)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (participant_id, question_id)
			 DO UPDATE SET answer = EXCLUDED.answer`,
			participantID, questionID, answer)
		if err != nil {
			return fmt.Errorf("upsert prediction: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) SeedMissingPredictions(ctx context.Context, participantID string, questionIDs []int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, questionID := range questionIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO predictions (participant_id, question_id, answer)
			 VALUES ($1, $2, NULL)
			 ON CONFLICT (participant_id, question_id) DO NOTHING`,
			participantID, questionID)
		if err != nil {
			return fmt.Errorf("seed prediction: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) AnswerCounts(ctx context.Context) (map[int]map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, answer, COUNT(*)
		 FROM predictions
		 WHERE answer IS NOT NULL
		 GROUP BY question_id, answer`)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]map[string]int)
	for rows.Next() {
		var questionID, n int
		var answer string
		if err := rows.Scan(&questionID, &answer, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if counts[questionID] == nil {
			counts[questionID] = make(map[string]int)
		}
		counts[questionID][answer] = n
	}
	return counts, rows.Err()
}

func (s *Store) CorrectAnswers(ctx context.Context) (map[int]domain.CorrectAnswer, error) {
	return correctAnswers(ctx, s.pool)
}

func (s *Store) UpsertCorrectAnswer(ctx context.Context, questionID int, answer string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO correct_answers (question_id, answer, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (question_id)
		 DO UPDATE SET answer = EXCLUDED.answer, updated_at = NOW()`,
		questionID, answer)
	if err != nil {
		return fmt.Errorf("upsert correct answer: %w", err)
	}
	return nil
}

func (s *Store) DeleteCorrectAnswer(ctx context.Context, questionID int) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM correct_answers WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("delete correct answer: %w", err)
	}
	return nil
}

func (s *Store) Settings(ctx context.Context) (domain.GameSettings, error) {
	var settings domain.GameSettings
	err := s.pool.QueryRow(ctx,
		`SELECT predictions_locked, answers_visible FROM game_settings WHERE id = 1`).
		Scan(&settings.PredictionsLocked, &settings.AnswersVisible)
	if err != nil && err != pgx.ErrNoRows {
		return domain.GameSettings{}, fmt.Errorf("select settings: %w", err)
	}
	return settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.GameSettings, error) {
	var settings domain.GameSettings
	err := s.pool.QueryRow(ctx,
		`UPDATE game_settings
		 SET predictions_locked = COALESCE($1, predictions_locked),
		     answers_visible = COALESCE($2, answers_visible)
		 WHERE id = 1
		 RETURNING predictions_locked, answers_visible`,
		patch.PredictionsLocked, patch.AnswersVisible).
		Scan(&settings.PredictionsLocked, &settings.AnswersVisible)
	if err != nil {
		return domain.GameSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return settings, nil
}

func (s *Store) LeaderboardSnapshot(ctx context.Context) (app.Snapshot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	details, err := listDetails(ctx, tx, `ORDER BY created_at ASC`)
	if err != nil {
		return app.Snapshot{}, err
	}
	declared, err := correctAnswers(ctx, tx)
	if err != nil {
		return app.Snapshot{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return app.Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}
	return app.Snapshot{Participants: details, CorrectAnswers: declared}, nil
}

// querier covers both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func listDetails(ctx context.Context, q querier, order string) ([]domain.ParticipantDetail, error) {
	rows, err := q.Query(ctx,
		`SELECT id, nickname, COALESCE(pin_hash, ''), created_at FROM participants `+order)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	var details []domain.ParticipantDetail
	index := make(map[string]int)
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Nickname, &p.PINHash, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		index[p.ID] = len(details)
		details = append(details, domain.ParticipantDetail{Participant: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	predRows, err := q.Query(ctx,
		`SELECT participant_id, question_id, answer FROM predictions ORDER BY question_id`)
	if err != nil {
		return nil, fmt.Errorf("select predictions: %w", err)
	}
	defer predRows.Close()

	for predRows.Next() {
		var p domain.Prediction
		if err := predRows.Scan(&p.ParticipantID, &p.QuestionID, &p.Answer); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if i, ok := index[p.ParticipantID]; ok {
			details[i].Predictions = append(details[i].Predictions, p)
		}
	}
	return details, predRows.Err()
}

func correctAnswers(ctx context.Context, q querier) (map[int]domain.CorrectAnswer, error) {
	rows, err := q.Query(ctx, `SELECT question_id, answer, updated_at FROM correct_answers`)
	if err != nil {
		return nil, fmt.Errorf("select correct answers: %w", err)
	}
	defer rows.Close()

	declared := make(map[int]domain.CorrectAnswer)
	for rows.Next() {
		var ca domain.CorrectAnswer
		if err := rows.Scan(&ca.QuestionID, &ca.Answer, &ca.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan correct answer: %w", err)
		}
		declared[ca.QuestionID] = ca
	}
	return declared, rows.Err()
}
