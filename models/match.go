package models

import "time"

type Match struct {
	ID             int       `json:"id"`
	TournamentID   int       `json:"tournament_id"`
	Participant1ID int       `json:"participant1_id"`
	Participant2ID int       `json:"participant2_id"`
	Round          Round     `json:"round"`
	MatchTime      time.Time `json:"match_time"`
	CreatedAt      time.Time `json:"created_at"`

	Sets         []*Set       `json:"sets,omitempty"`
	Participant1 *Participant `json:"participant1,omitempty"`
	Participant2 *Participant `json:"participant2,omitempty"`
}

// SetWins counts, over the attached sets, how many each side has won.
// Unplayed and drawn sets count for neither.
func (m *Match) SetWins() (p1, p2 int) {
	for _, s := range m.Sets {
		switch side, ok := s.WinnerSide(); {
		case !ok:
		case side == 1:
			p1++
		case side == 2:
			p2++
		}
	}
	return p1, p2
}

// GameTotals sums the games of all fully scored sets per side.
func (m *Match) GameTotals() (p1, p2 int) {
	for _, s := range m.Sets {
		if !s.Played() {
			continue
		}
		p1 += *s.Participant1Score
		p2 += *s.Participant2Score
	}
	return p1, p2
}

// WinnerID derives the winning participant by majority of set wins.
// A tied match has no winner yet.
func (m *Match) WinnerID() (int, bool) {
	p1, p2 := m.SetWins()
	switch {
	case p1 > p2:
		return m.Participant1ID, true
	case p2 > p1:
		return m.Participant2ID, true
	default:
		return 0, false
	}
}

// LoserID is the counterpart of WinnerID.
func (m *Match) LoserID() (int, bool) {
	winnerID, ok := m.WinnerID()
	if !ok {
		return 0, false
	}
	if winnerID == m.Participant1ID {
		return m.Participant2ID, true
	}
	return m.Participant1ID, true
}
