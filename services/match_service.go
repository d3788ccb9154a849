package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sergiramirez/tennis-league/models"
	"github.com/sergiramirez/tennis-league/progression"
	"github.com/sergiramirez/tennis-league/repositories"
)

// SetScoreInput carries one set's games for score entry. Both scores
// travel together; a set with no score yet is simply omitted.
type SetScoreInput struct {
	SetNumber         int `json:"set_number"`
	Participant1Score int `json:"participant1_score"`
	Participant2Score int `json:"participant2_score"`
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.RoundMatches, error)
	EnterScores(ctx context.Context, matchID int, scores []SetScoreInput) (*models.Match, error)
}

type matchService struct {
	txRunner        repositories.TxRunner
	matchRepo       repositories.MatchRepository
	setRepo         repositories.SetRepository
	participantRepo repositories.ParticipantRepository
	hub             *progression.Hub
	logger          *slog.Logger
}

func NewMatchService(
	txRunner repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	participantRepo repositories.ParticipantRepository,
	hub *progression.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txRunner:        txRunner,
		matchRepo:       matchRepo,
		setRepo:         setRepo,
		participantRepo: participantRepo,
		hub:             hub,
		logger:          logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	sets, err := s.setRepo.ListByMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sets for match %d: %w", id, err)
	}
	m.Sets = sets

	if m.Participant1, err = s.participantRepo.FindByID(ctx, m.Participant1ID); err != nil {
		return nil, fmt.Errorf("failed to load participant %d: %w", m.Participant1ID, err)
	}
	if m.Participant2, err = s.participantRepo.FindByID(ctx, m.Participant2ID); err != nil {
		return nil, fmt.Errorf("failed to load participant %d: %w", m.Participant2ID, err)
	}
	return m, nil
}

// ListByTournament returns the bracket view: every match with its
// sets, grouped by round in playing order.
func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.RoundMatches, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}

	matchIDs := make([]int, len(matches))
	for i, m := range matches {
		matchIDs[i] = m.ID
	}
	setsByMatch, err := s.setRepo.ListByMatchIDs(ctx, matchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sets: %w", err)
	}

	byRound := make(map[models.Round]*models.RoundMatches)
	var rounds []*models.RoundMatches
	for _, m := range matches {
		m.Sets = setsByMatch[m.ID]
		group, ok := byRound[m.Round]
		if !ok {
			group = &models.RoundMatches{Round: m.Round}
			byRound[m.Round] = group
			rounds = append(rounds, group)
		}
		group.Matches = append(group.Matches, m)
	}

	slices.SortFunc(rounds, func(a, b *models.RoundMatches) int {
		return a.Round.Order() - b.Round.Order()
	})
	return rounds, nil
}

// EnterScores records set results for a match. Scores can be entered
// and corrected freely until the round is settled; the update is
// atomic across sets and pushed to the tournament's live room.
func (s *matchService) EnterScores(ctx context.Context, matchID int, scores []SetScoreInput) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}

	sets, err := s.setRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sets for match %d: %w", matchID, err)
	}
	byNumber := make(map[int]*models.Set, len(sets))
	for _, set := range sets {
		byNumber[set.SetNumber] = set
	}

	for _, input := range scores {
		if input.SetNumber < 1 || input.SetNumber > models.SetsPerMatch {
			return nil, fmt.Errorf("%w: set %d", ErrInvalidSetNumber, input.SetNumber)
		}
		if input.Participant1Score < 0 || input.Participant2Score < 0 {
			return nil, fmt.Errorf("%w: set %d", ErrInvalidScore, input.SetNumber)
		}
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, input := range scores {
			set := byNumber[input.SetNumber]
			p1, p2 := input.Participant1Score, input.Participant2Score
			if err := s.setRepo.UpdateScores(ctx, exec, set.ID, &p1, &p2); err != nil {
				return fmt.Errorf("failed to update set %d: %w", input.SetNumber, err)
			}
			set.Participant1Score = &p1
			set.Participant2Score = &p2
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.Sets = sets
	s.logger.Info("match scores updated",
		slog.Int("match_id", matchID),
		slog.Int("tournament_id", m.TournamentID),
		slog.Int("sets_entered", len(scores)))
	if s.hub != nil {
		s.hub.BroadcastToRoom(progression.RoomForTournament(m.TournamentID), progression.Event{
			Type: progression.EventScoresUpdated,
			Payload: map[string]interface{}{
				"tournament_id": m.TournamentID,
				"match_id":      matchID,
				"sets":          sets,
			},
		})
	}
	return m, nil
}
