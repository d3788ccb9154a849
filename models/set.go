package models

// SetsPerMatch is how many sets are opened for every match; the winner
// is decided by majority.
const SetsPerMatch = 5

// Set хранит счёт одного сета; счёт NULL, пока сет не сыгран.
type Set struct {
	ID                int  `json:"id"`
	MatchID           int  `json:"match_id"`
	SetNumber         int  `json:"set_number"`
	Participant1Score *int `json:"participant1_score"`
	Participant2Score *int `json:"participant2_score"`
}

// Played reports whether both scores have been entered.
func (s *Set) Played() bool {
	return s.Participant1Score != nil && s.Participant2Score != nil
}

// WinnerSide returns 1 or 2 for the side with the higher score.
// Unplayed or drawn sets have no winner.
func (s *Set) WinnerSide() (int, bool) {
	if !s.Played() {
		return 0, false
	}
	switch {
	case *s.Participant1Score > *s.Participant2Score:
		return 1, true
	case *s.Participant2Score > *s.Participant1Score:
		return 2, true
	default:
		return 0, false
	}
}
