package models

import "time"

// ParticipantStatus моделирует жизненный цикл участника:
// applied -> active -> eliminated, назад переходов нет.
type ParticipantStatus string

const (
	ParticipantApplied    ParticipantStatus = "applied"
	ParticipantActive     ParticipantStatus = "active"
	ParticipantEliminated ParticipantStatus = "eliminated"
)

type Participant struct {
	ID           int               `json:"id"`
	UserID       int               `json:"user_id"`
	TournamentID int               `json:"tournament_id"`
	Status       ParticipantStatus `json:"status"`
	Score        int               `json:"score"`
	MatchesWon   int               `json:"matches_won"`
	SetsWon      int               `json:"sets_won"`
	GamesWon     int               `json:"games_won"`
	GamesLost    int               `json:"games_lost"`
	CreatedAt    time.Time         `json:"created_at"`

	User *User `json:"user,omitempty"`
}
