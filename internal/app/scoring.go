package app

import (
	"sort"

	"quiniela-service/internal/domain"
)

const (
	basePoints   = 10
	winnerPoints = 20
)

// questionWeight returns the points a question is worth when answered
// correctly. The winner question id is fixed per deployment.
func questionWeight(questionID, winnerQuestionID int) int {
	if questionID == winnerQuestionID {
		return winnerPoints
	}
	return basePoints
}

// score computes a participant's total over the declared correct answers.
// Questions without a declared answer contribute nothing, whatever the
// participant predicted.
func score(predictions map[int]string, correct map[int]string, winnerQuestionID int) int {
	total := 0
	for questionID, answer := range predictions {
		declared, ok := correct[questionID]
		if ok && answer == declared {
			total += questionWeight(questionID, winnerQuestionID)
		}
	}
	return total
}

// buildLeaderboard ranks every complete participant. Participants with
// fewer than totalQuestions answers are excluded outright, not scored at
// zero. Ties on score are broken by registration time: the tiebreak uses
// the participant's creation timestamp as a proxy for completion order,
// which can rank an early registrant who finished late above a late
// registrant who finished first. Kept as-is on purpose.
func buildLeaderboard(participants []domain.ParticipantDetail, correct map[int]domain.CorrectAnswer, totalQuestions, winnerQuestionID int) domain.Leaderboard {
	declared := make(map[int]string, len(correct))
	for questionID, ca := range correct {
		declared[questionID] = ca.Answer
	}

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		predictions := make(map[int]string, len(p.Predictions))
		answered := 0
		for _, pred := range p.Predictions {
			if pred.Answer == nil {
				continue
			}
			predictions[pred.QuestionID] = *pred.Answer
			answered++
		}
		if answered != totalQuestions {
			continue
		}

		correctCount := 0
		for questionID, value := range declared {
			if predictions[questionID] == value {
				correctCount++
			}
		}

		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: p.ID,
			Nickname:      p.Nickname,
			Score:         score(predictions, declared, winnerQuestionID),
			CorrectCount:  correctCount,
			AnsweredCount: answered,
			CompletedAt:   p.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].CompletedAt.Equal(entries[j].CompletedAt) {
			return entries[i].CompletedAt.Before(entries[j].CompletedAt)
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	for i := range entries {
		entries[i].Position = i + 1
	}

	return domain.Leaderboard{
		Entries:           entries,
		TotalParticipants: len(entries),
		AnsweredQuestions: len(correct),
	}
}
