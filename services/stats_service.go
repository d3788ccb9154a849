package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sergiramirez/tennis-league/models"
	"github.com/sergiramirez/tennis-league/progression"
	"github.com/sergiramirez/tennis-league/repositories"
)

type StatsService interface {
	UserStatistics(ctx context.Context, userID int) (*models.UserStatistics, error)
	PointsRanking(ctx context.Context) ([]*models.RankingEntry, error)
	GlobalRanking(ctx context.Context) ([]*models.RankingEntry, error)
	TournamentStandings(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type statsService struct {
	statsRepo       repositories.StatsRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	setRepo         repositories.SetRepository
	userRepo        repositories.UserRepository
	newRand         func() *rand.Rand
}

func NewStatsService(
	statsRepo repositories.StatsRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	userRepo repositories.UserRepository,
	newRand func() *rand.Rand,
) StatsService {
	if newRand == nil {
		newRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return &statsService{
		statsRepo:       statsRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		setRepo:         setRepo,
		userRepo:        userRepo,
		newRand:         newRand,
	}
}

// UserStatistics builds a user's history across finished tournaments:
// total points plus a per-tournament breakdown of every match they
// played, set by set, from their side of the net. Tournaments are
// loaded concurrently since each needs several queries.
func (s *statsService) UserStatistics(ctx context.Context, userID int) (*models.UserStatistics, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	totalPoints, err := s.statsRepo.TotalPointsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum points for user %d: %w", userID, err)
	}

	tournaments, err := s.tournamentRepo.ListFinishedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished tournaments for user %d: %w", userID, err)
	}

	breakdowns := make([]*models.TournamentBreakdown, len(tournaments))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tournaments {
		i, t := i, t
		g.Go(func() error {
			b, err := s.tournamentBreakdown(gctx, userID, t)
			if err != nil {
				return err
			}
			breakdowns[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &models.UserStatistics{
		UserID:      userID,
		TotalPoints: totalPoints,
		Tournaments: make([]models.TournamentBreakdown, 0, len(breakdowns)),
	}
	for _, b := range breakdowns {
		if b != nil {
			stats.Tournaments = append(stats.Tournaments, *b)
		}
	}
	return stats, nil
}

func (s *statsService) tournamentBreakdown(ctx context.Context, userID int, t *models.Tournament) (*models.TournamentBreakdown, error) {
	p, err := s.participantRepo.FindByUserAndTournament(ctx, userID, t.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find participant in tournament %d: %w", t.ID, err)
	}

	matches, err := s.matchRepo.ListByParticipant(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for participant %d: %w", p.ID, err)
	}

	matchIDs := make([]int, len(matches))
	for i, m := range matches {
		matchIDs[i] = m.ID
	}
	setsByMatch, err := s.setRepo.ListByMatchIDs(ctx, matchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sets: %w", err)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, t.ID, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", t.ID, err)
	}
	nameByParticipant := make(map[int]string, len(participants))
	for _, other := range participants {
		if other.User != nil {
			nameByParticipant[other.ID] = other.User.FullName()
		}
	}

	b := &models.TournamentBreakdown{
		TournamentID:   t.ID,
		TournamentName: t.Name,
		Score:          p.Score,
		Matches:        make([]models.MatchResult, 0, len(matches)),
	}
	for _, m := range matches {
		m.Sets = setsByMatch[m.ID]
		b.Matches = append(b.Matches, matchResultFor(p.ID, m, nameByParticipant))
	}
	slices.SortFunc(b.Matches, func(a, b models.MatchResult) int {
		return a.Round.Order() - b.Round.Order()
	})
	return b, nil
}

// matchResultFor flips a match into the given participant's
// perspective. A match without a decided winner reads as a tie.
func matchResultFor(participantID int, m *models.Match, names map[int]string) models.MatchResult {
	userIsFirst := m.Participant1ID == participantID
	opponentID := m.Participant1ID
	if userIsFirst {
		opponentID = m.Participant2ID
	}

	result := models.MatchResult{
		MatchID:  m.ID,
		Round:    m.Round,
		Date:     m.MatchTime,
		Opponent: names[opponentID],
		Outcome:  models.OutcomeTie,
	}
	if winnerID, ok := m.WinnerID(); ok {
		if winnerID == participantID {
			result.Outcome = models.OutcomeWon
		} else {
			result.Outcome = models.OutcomeLost
		}
	}

	for _, set := range m.Sets {
		if !set.Played() {
			continue
		}
		sr := models.SetResult{SetNumber: set.SetNumber}
		if userIsFirst {
			sr.GamesWon = *set.Participant1Score
			sr.GamesLost = *set.Participant2Score
		} else {
			sr.GamesWon = *set.Participant2Score
			sr.GamesLost = *set.Participant1Score
		}
		result.Sets = append(result.Sets, sr)
	}
	return result
}

// PointsRanking is the site-wide leaderboard by accumulated points,
// with dense ranks shared between users on equal totals.
func (s *statsService) PointsRanking(ctx context.Context) ([]*models.RankingEntry, error) {
	totals, err := s.statsRepo.SumScoresByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum scores: %w", err)
	}
	return progression.DensePointsRanking(totals), nil
}

// GlobalRanking orders every user by lifetime set and game totals.
// Exact ties land in random order, reshuffled on every request.
func (s *statsService) GlobalRanking(ctx context.Context) ([]*models.RankingEntry, error) {
	aggregates, err := s.statsRepo.AggregateTotalsByUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate totals: %w", err)
	}
	return progression.RankGlobal(aggregates, s.newRand()), nil
}

// TournamentStandings lists a tournament's contenders by score, the
// applied-but-never-selected excluded.
func (s *statsService) TournamentStandings(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	standings := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status != models.ParticipantApplied {
			standings = append(standings, p)
		}
	}
	slices.SortFunc(standings, func(a, b *models.Participant) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.ID - b.ID
	})
	return standings, nil
}
