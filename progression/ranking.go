package progression

import (
	"cmp"
	"math/rand"
	"slices"

	"github.com/sergiramirez/tennis-league/models"
)

// SeedEntry carries a selection candidate together with the user's
// historical totals across finished tournaments.
type SeedEntry struct {
	ParticipantID int
	Score         int
	SetsWon       int
	GamesWon      int
	GamesLost     int
}

// RankSeeds orders selection candidates by historical performance:
// score, sets won and games won descending, games lost ascending.
// Remaining ties are broken by a random key drawn once per call from
// rng, so the order is stable within a computation but deliberately
// not across calls.
func RankSeeds(entries []SeedEntry, rng *rand.Rand) []SeedEntry {
	type keyed struct {
		SeedEntry
		tieBreak int64
	}

	ranked := make([]keyed, len(entries))
	for i, e := range entries {
		ranked[i] = keyed{SeedEntry: e, tieBreak: rng.Int63()}
	}

	slices.SortFunc(ranked, func(a, b keyed) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.SetsWon, a.SetsWon); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GamesWon, a.GamesWon); c != 0 {
			return c
		}
		if c := cmp.Compare(a.GamesLost, b.GamesLost); c != 0 {
			return c
		}
		return cmp.Compare(a.tieBreak, b.tieBreak)
	})

	out := make([]SeedEntry, len(ranked))
	for i, k := range ranked {
		out[i] = k.SeedEntry
	}
	return out
}

// RankForPoints orders a tournament's participants for point
// distribution: matches won, sets won and games won descending, games
// lost ascending, then the per-call random tie-break. Callers exclude
// applied participants before ranking.
func RankForPoints(participants []*models.Participant, rng *rand.Rand) []*models.Participant {
	type keyed struct {
		p        *models.Participant
		tieBreak int64
	}

	ranked := make([]keyed, len(participants))
	for i, p := range participants {
		ranked[i] = keyed{p: p, tieBreak: rng.Int63()}
	}

	slices.SortFunc(ranked, func(a, b keyed) int {
		if c := cmp.Compare(b.p.MatchesWon, a.p.MatchesWon); c != 0 {
			return c
		}
		if c := cmp.Compare(b.p.SetsWon, a.p.SetsWon); c != 0 {
			return c
		}
		if c := cmp.Compare(b.p.GamesWon, a.p.GamesWon); c != 0 {
			return c
		}
		if c := cmp.Compare(a.p.GamesLost, b.p.GamesLost); c != 0 {
			return c
		}
		return cmp.Compare(a.tieBreak, b.tieBreak)
	})

	out := make([]*models.Participant, len(ranked))
	for i, k := range ranked {
		out[i] = k.p
	}
	return out
}

// PointsForPosition returns the points a finishing position earns.
// Positions 1-4 use the fixed podium table; from position 5 a linear
// decay applies. The decay is deliberately unclamped: large fields get
// negative scores rather than a tie at zero, keeping the strict order.
func PointsForPosition(position int) int {
	switch position {
	case 1:
		return 2000
	case 2:
		return 1500
	case 3:
		return 1000
	case 4:
		return 500
	default:
		return 475 - (position-5)*25
	}
}

// DensePointsRanking assigns dense ranks to per-user score totals:
// equal totals share a rank and the next distinct total takes the
// immediately following rank.
func DensePointsRanking(totals []*models.UserScoreTotal) []*models.RankingEntry {
	sorted := slices.Clone(totals)
	slices.SortStableFunc(sorted, func(a, b *models.UserScoreTotal) int {
		return cmp.Compare(b.TotalPoints, a.TotalPoints)
	})

	entries := make([]*models.RankingEntry, len(sorted))
	rank := 0
	var prev int
	for i, t := range sorted {
		if i == 0 || t.TotalPoints != prev {
			rank++
			prev = t.TotalPoints
		}
		entries[i] = &models.RankingEntry{
			Rank:        rank,
			User:        t.User,
			TotalPoints: t.TotalPoints,
		}
	}
	return entries
}

// RankGlobal orders lifetime aggregates for the global ranking view:
// sets won and games won descending, games lost ascending, and a
// per-call random tie-break. Repeated requests may legitimately order
// fully tied users differently.
func RankGlobal(aggregates []*models.UserAggregate, rng *rand.Rand) []*models.RankingEntry {
	type keyed struct {
		a        *models.UserAggregate
		tieBreak int64
	}

	ranked := make([]keyed, len(aggregates))
	for i, a := range aggregates {
		ranked[i] = keyed{a: a, tieBreak: rng.Int63()}
	}

	slices.SortFunc(ranked, func(x, y keyed) int {
		if c := cmp.Compare(y.a.SetsWon, x.a.SetsWon); c != 0 {
			return c
		}
		if c := cmp.Compare(y.a.GamesWon, x.a.GamesWon); c != 0 {
			return c
		}
		if c := cmp.Compare(x.a.GamesLost, y.a.GamesLost); c != 0 {
			return c
		}
		return cmp.Compare(x.tieBreak, y.tieBreak)
	})

	entries := make([]*models.RankingEntry, len(ranked))
	for i, k := range ranked {
		entries[i] = &models.RankingEntry{
			Rank:      i + 1,
			User:      k.a.User,
			SetsWon:   k.a.SetsWon,
			GamesWon:  k.a.GamesWon,
			GamesLost: k.a.GamesLost,
		}
	}
	return entries
}
