package models

import "time"

// MatchOutcome is the result of a match from one user's perspective.
type MatchOutcome string

const (
	OutcomeWon  MatchOutcome = "won"
	OutcomeLost MatchOutcome = "lost"
	OutcomeTie  MatchOutcome = "tie"
)

// SetResult is one set seen from the user's side of the match.
type SetResult struct {
	SetNumber int `json:"set_number"`
	GamesWon  int `json:"games_won"`
	GamesLost int `json:"games_lost"`
}

type MatchResult struct {
	MatchID  int          `json:"match_id"`
	Round    Round        `json:"round"`
	Date     time.Time    `json:"date"`
	Opponent string       `json:"opponent"`
	Outcome  MatchOutcome `json:"outcome"`
	Sets     []SetResult  `json:"sets"`
}

// TournamentBreakdown is one finished tournament in a user's history.
type TournamentBreakdown struct {
	TournamentID   int           `json:"tournament_id"`
	TournamentName string        `json:"tournament_name"`
	Score          int           `json:"score"`
	Matches        []MatchResult `json:"matches"`
}

type UserStatistics struct {
	UserID      int                   `json:"user_id"`
	TotalPoints int                   `json:"total_points"`
	Tournaments []TournamentBreakdown `json:"tournaments"`
}

// UserScoreTotal is a user with the sum of their scores across all
// tournaments, used for the dense points ranking.
type UserScoreTotal struct {
	User        *User `json:"user"`
	TotalPoints int   `json:"total_points"`
}

// UserAggregate carries lifetime set/game totals for the global ranking.
type UserAggregate struct {
	User      *User `json:"user"`
	SetsWon   int   `json:"sets_won"`
	GamesWon  int   `json:"games_won"`
	GamesLost int   `json:"games_lost"`
}

type RankingEntry struct {
	Rank        int   `json:"rank"`
	User        *User `json:"user"`
	TotalPoints int   `json:"total_points,omitempty"`
	SetsWon     int   `json:"sets_won,omitempty"`
	GamesWon    int   `json:"games_won,omitempty"`
	GamesLost   int   `json:"games_lost,omitempty"`
}

// RoundMatches groups a round's matches for the bracket view.
type RoundMatches struct {
	Round   Round    `json:"round"`
	Matches []*Match `json:"matches"`
}
