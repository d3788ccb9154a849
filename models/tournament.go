package models

import "time"

// Round представляет стадию турнира, соответствующую ENUM в БД.
type Round string

const (
	RoundNotStarted   Round = "not_started"
	RoundOf16         Round = "round_of_16"
	RoundQuarterfinal Round = "quarterfinal"
	RoundSemifinal    Round = "semifinal"
	RoundFinal        Round = "final"
	RoundFinished     Round = "finished"
)

var roundOrder = map[Round]int{
	RoundNotStarted:   0,
	RoundOf16:         1,
	RoundQuarterfinal: 2,
	RoundSemifinal:    3,
	RoundFinal:        4,
	RoundFinished:     5,
}

var roundSequence = []Round{
	RoundNotStarted,
	RoundOf16,
	RoundQuarterfinal,
	RoundSemifinal,
	RoundFinal,
	RoundFinished,
}

// Order returns the position of the round in the fixed progression
// sequence. Unknown values sort before not_started.
func (r Round) Order() int {
	if o, ok := roundOrder[r]; ok {
		return o
	}
	return -1
}

// Next returns the round that follows r. The second return value is
// false when r is already finished (or unknown).
func (r Round) Next() (Round, bool) {
	o := r.Order()
	if o < 0 || o+1 >= len(roundSequence) {
		return r, false
	}
	return roundSequence[o+1], true
}

// Playable reports whether matches are played in this round.
func (r Round) Playable() bool {
	return r.Order() >= roundOrder[RoundOf16] && r.Order() <= roundOrder[RoundFinal]
}

func (r Round) Valid() bool {
	_, ok := roundOrder[r]
	return ok
}

// Tournament представляет турнир.
type Tournament struct {
	ID                    int       `json:"id"`
	Name                  string    `json:"name"`
	Description           *string   `json:"description,omitempty"`
	RegistrationCloseDate time.Time `json:"registration_close_date"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	CurrentRound          Round     `json:"current_round"`
	CreatedAt             time.Time `json:"created_at"`
	BannerKey             *string   `json:"-"`
	BannerURL             *string   `json:"banner_url,omitempty"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []*Participant `json:"participants,omitempty"`
}

func (t *Tournament) Finished() bool {
	return t.CurrentRound == RoundFinished
}

func (t *Tournament) RegistrationOpen(now time.Time) bool {
	return t.CurrentRound == RoundNotStarted && now.Before(t.RegistrationCloseDate)
}
