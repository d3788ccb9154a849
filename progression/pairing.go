package progression

import (
	"math/rand"

	"github.com/sergiramirez/tennis-league/models"
)

// Pair is one scheduled pairing within a round.
type Pair struct {
	Participant1ID int
	Participant2ID int
}

// RoundPlan is the outcome of pairing a round: the matches to create
// and, for an odd field, the participant who sits the round out with a
// bye. A bye produces no match row; the participant stays active and
// is credited the round win at settlement like any other survivor.
type RoundPlan struct {
	Pairs            []Pair
	ByeParticipantID *int
}

// PlanRound shuffles the eligible participants with the supplied
// source of randomness and pairs consecutive entries.
func PlanRound(participants []*models.Participant, rng *rand.Rand) RoundPlan {
	shuffled := make([]*models.Participant, len(participants))
	copy(shuffled, participants)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	plan := RoundPlan{Pairs: make([]Pair, 0, len(shuffled)/2)}
	for i := 0; i+1 < len(shuffled); i += 2 {
		plan.Pairs = append(plan.Pairs, Pair{
			Participant1ID: shuffled[i].ID,
			Participant2ID: shuffled[i+1].ID,
		})
	}
	if len(shuffled)%2 == 1 {
		byeID := shuffled[len(shuffled)-1].ID
		plan.ByeParticipantID = &byeID
	}
	return plan
}
