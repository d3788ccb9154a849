package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sergiramirez/tennis-league/models"
	"github.com/sergiramirez/tennis-league/progression"
	"github.com/sergiramirez/tennis-league/repositories"
	"github.com/sergiramirez/tennis-league/storage"
)

// DefaultSelectionLimit is how many applicants are promoted when the
// staff command does not say otherwise: a full round of 16.
const DefaultSelectionLimit = 16

var ErrSelectionClosed = errors.New("participants can only be selected before the tournament starts")

type CreateTournamentInput struct {
	Name                  string    `json:"name"`
	Description           *string   `json:"description"`
	RegistrationCloseDate time.Time `json:"registration_close_date"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Update(ctx context.Context, id int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Apply(ctx context.Context, tournamentID, userID int) (*models.Participant, error)
	Withdraw(ctx context.Context, tournamentID, userID int) error
	SelectParticipants(ctx context.Context, tournamentID, limit int) ([]*models.Participant, error)
	SettleRound(ctx context.Context, tournamentID int) (*models.Tournament, error)
	RoundFinished(ctx context.Context, tournamentID int) (bool, error)
	UploadBanner(ctx context.Context, tournamentID int, contentType string, banner io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	setRepo         repositories.SetRepository
	uploader        storage.FileUploader
	hub             *progression.Hub
	logger          *slog.Logger
	newRand         func() *rand.Rand
}

// NewTournamentService wires the progression engine. newRand may be
// nil; tests inject a seeded source to make tie-breaks reproducible.
func NewTournamentService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	uploader storage.FileUploader,
	hub *progression.Hub,
	logger *slog.Logger,
	newRand func() *rand.Rand,
) TournamentService {
	if newRand == nil {
		newRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return &tournamentService{
		txRunner:        txRunner,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		setRepo:         setRepo,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
		newRand:         newRand,
	}
}

func (s *tournamentService) validateInput(input CreateTournamentInput) error {
	if input.Name == "" {
		return ErrTournamentNameRequired
	}
	if !input.RegistrationCloseDate.Before(input.StartDate) {
		return ErrTournamentInvalidRegDate
	}
	if !input.StartDate.Before(input.EndDate) {
		return ErrTournamentInvalidDateRange
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:                  input.Name,
		Description:           input.Description,
		RegistrationCloseDate: input.RegistrationCloseDate,
		StartDate:             input.StartDate,
		EndDate:               input.EndDate,
		CurrentRound:          models.RoundNotStarted,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *tournamentService) Update(ctx context.Context, id int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	t, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Name = input.Name
	t.Description = input.Description
	t.RegistrationCloseDate = input.RegistrationCloseDate
	t.StartDate = input.StartDate
	t.EndDate = input.EndDate

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}
	return t, nil
}

func (s *tournamentService) getTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	s.attachBannerURL(t)
	return t, nil
}

func (s *tournamentService) attachBannerURL(t *models.Tournament) {
	if t.BannerKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.BannerKey)
		t.BannerURL = &url
	}
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, id, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants for tournament %d: %w", id, err)
	}
	t.Participants = participants
	return t, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, t := range tournaments {
		s.attachBannerURL(t)
	}
	return tournaments, nil
}

func (s *tournamentService) Apply(ctx context.Context, tournamentID, userID int) (*models.Participant, error) {
	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !t.RegistrationOpen(time.Now()) {
		return nil, ErrRegistrationClosed
	}

	p := &models.Participant{
		UserID:       userID,
		TournamentID: tournamentID,
		Status:       models.ParticipantApplied,
	}
	if err := s.participantRepo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("failed to register participant: %w", err)
	}
	return p, nil
}

func (s *tournamentService) Withdraw(ctx context.Context, tournamentID, userID int) error {
	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !t.RegistrationOpen(time.Now()) {
		return ErrRegistrationClosed
	}

	p, err := s.participantRepo.FindByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to find participant: %w", err)
	}
	if p.Status != models.ParticipantApplied {
		return ErrWithdrawNotAllowed
	}

	if err := s.participantRepo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}

// SelectParticipants promotes the strongest applicants to active.
// Candidates are ranked by their historical totals across finished
// tournaments; users with no history rank at the bottom (before the
// random tie-break). All status changes commit atomically.
func (s *tournamentService) SelectParticipants(ctx context.Context, tournamentID, limit int) ([]*models.Participant, error) {
	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.CurrentRound != models.RoundNotStarted {
		return nil, ErrSelectionClosed
	}
	if limit <= 0 {
		limit = DefaultSelectionLimit
	}

	applied := models.ParticipantApplied
	applicants, err := s.participantRepo.ListByTournament(ctx, tournamentID, &applied, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	if len(applicants) == 0 {
		return nil, ErrNoApplicants
	}

	userIDs := make([]int, len(applicants))
	byID := make(map[int]*models.Participant, len(applicants))
	for i, p := range applicants {
		userIDs[i] = p.UserID
		byID[p.ID] = p
	}

	totals, err := s.participantRepo.HistoricalTotalsByUser(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical totals: %w", err)
	}

	entries := make([]progression.SeedEntry, len(applicants))
	for i, p := range applicants {
		h := totals[p.UserID] // zero value for users without history
		entries[i] = progression.SeedEntry{
			ParticipantID: p.ID,
			Score:         h.Score,
			SetsWon:       h.SetsWon,
			GamesWon:      h.GamesWon,
			GamesLost:     h.GamesLost,
		}
	}

	ranked := progression.RankSeeds(entries, s.newRand())
	if limit > len(ranked) {
		limit = len(ranked)
	}

	selected := make([]*models.Participant, 0, limit)
	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, entry := range ranked[:limit] {
			if err := s.participantRepo.UpdateStatus(ctx, exec, entry.ParticipantID, models.ParticipantActive); err != nil {
				return fmt.Errorf("failed to activate participant %d: %w", entry.ParticipantID, err)
			}
			p := byID[entry.ParticipantID]
			p.Status = models.ParticipantActive
			selected = append(selected, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participants selected",
		slog.Int("tournament_id", tournamentID),
		slog.Int("selected", len(selected)),
		slog.Int("applicants", len(applicants)))
	s.broadcast(tournamentID, progression.EventParticipantsSelected, map[string]interface{}{
		"tournament_id": tournamentID,
		"selected":      len(selected),
	})
	return selected, nil
}

// RoundFinished reports whether every match of the current round has a
// decided winner. Callers must check it before settling.
func (s *tournamentService) RoundFinished(ctx context.Context, tournamentID int) (bool, error) {
	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return false, err
	}
	if !t.CurrentRound.Playable() {
		return false, nil
	}

	matches, err := s.loadRoundMatches(ctx, tournamentID, t.CurrentRound)
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if _, ok := m.WinnerID(); !ok {
			return false, nil
		}
	}
	return true, nil
}

// SettleRound drives the round state machine forward.
//
// On a not-started tournament it opens the first round: active
// participants are paired and the round-of-16 matches created. On a
// playable round it settles every match, credits a match win to every
// participant still standing (byes included), advances the round,
// redistributes points and, unless the tournament just finished,
// generates the next round's matches. The whole transition commits in
// one transaction.
func (s *tournamentService) SettleRound(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Finished() {
		return nil, ErrTournamentFinished
	}

	if t.CurrentRound == models.RoundNotStarted {
		return s.openFirstRound(ctx, t)
	}

	matches, err := s.loadRoundMatches(ctx, tournamentID, t.CurrentRound)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if _, ok := m.WinnerID(); !ok {
			return nil, ErrRoundNotFinished
		}
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	contenders := make([]*models.Participant, 0, len(participants))
	byID := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		if p.Status == models.ParticipantApplied {
			continue
		}
		contenders = append(contenders, p)
		byID[p.ID] = p
	}

	for _, m := range matches {
		if err := settleMatch(m, byID); err != nil {
			return nil, err
		}
	}

	survivors := make([]*models.Participant, 0, len(contenders))
	for _, p := range contenders {
		if p.Status == models.ParticipantActive {
			p.MatchesWon++
			survivors = append(survivors, p)
		}
	}

	next, _ := t.CurrentRound.Next()
	rng := s.newRand()

	ranked := progression.RankForPoints(contenders, rng)
	for i, p := range ranked {
		p.Score = progression.PointsForPosition(i + 1)
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, p := range contenders {
			if err := s.participantRepo.UpdateAccumulators(ctx, exec, p); err != nil {
				return err
			}
			if err := s.participantRepo.UpdateScore(ctx, exec, p.ID, p.Score); err != nil {
				return err
			}
		}
		if err := s.tournamentRepo.UpdateCurrentRound(ctx, exec, t.ID, next); err != nil {
			return err
		}
		if next.Playable() {
			return s.generateMatches(ctx, exec, t, next, survivors, rng)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.CurrentRound = next
	s.logger.Info("round settled",
		slog.Int("tournament_id", t.ID),
		slog.String("advanced_to", string(next)),
		slog.Int("survivors", len(survivors)))
	s.broadcast(t.ID, progression.EventRoundSettled, map[string]interface{}{
		"tournament_id": t.ID,
		"current_round": next,
	})
	return t, nil
}

func (s *tournamentService) openFirstRound(ctx context.Context, t *models.Tournament) (*models.Tournament, error) {
	active := models.ParticipantActive
	participants, err := s.participantRepo.ListByTournament(ctx, t.ID, &active, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, ErrNoEligibleParticipants
	}

	first := models.RoundOf16
	rng := s.newRand()

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.UpdateCurrentRound(ctx, exec, t.ID, first); err != nil {
			return err
		}
		return s.generateMatches(ctx, exec, t, first, participants, rng)
	})
	if err != nil {
		return nil, err
	}

	t.CurrentRound = first
	s.logger.Info("first round opened",
		slog.Int("tournament_id", t.ID),
		slog.Int("participants", len(participants)))
	s.broadcast(t.ID, progression.EventRoundSettled, map[string]interface{}{
		"tournament_id": t.ID,
		"current_round": first,
	})
	return t, nil
}

// generateMatches pairs the given participants for a round and creates
// the match rows with their unscored sets. Matches are scheduled on
// successive days starting two days out.
func (s *tournamentService) generateMatches(
	ctx context.Context,
	exec repositories.SQLExecutor,
	t *models.Tournament,
	round models.Round,
	participants []*models.Participant,
	rng *rand.Rand,
) error {
	if len(participants) == 0 {
		s.logger.Warn("no eligible participants for round, skipping match generation",
			slog.Int("tournament_id", t.ID),
			slog.String("round", string(round)))
		return nil
	}

	plan := progression.PlanRound(participants, rng)
	if plan.ByeParticipantID != nil {
		s.logger.Info("odd participant count, last participant receives a bye",
			slog.Int("tournament_id", t.ID),
			slog.String("round", string(round)),
			slog.Int("participant_id", *plan.ByeParticipantID))
	}

	firstMatchDay := time.Now().AddDate(0, 0, 2)
	for i, pair := range plan.Pairs {
		m := &models.Match{
			TournamentID:   t.ID,
			Participant1ID: pair.Participant1ID,
			Participant2ID: pair.Participant2ID,
			Round:          round,
			MatchTime:      firstMatchDay.AddDate(0, 0, i),
		}
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to create match for round %s: %w", round, err)
		}

		sets := make([]*models.Set, models.SetsPerMatch)
		for n := range sets {
			sets[n] = &models.Set{MatchID: m.ID, SetNumber: n + 1}
		}
		if err := s.setRepo.CreateBatch(ctx, exec, sets); err != nil {
			return fmt.Errorf("failed to create sets for match %d: %w", m.ID, err)
		}
	}
	return nil
}

// settleMatch applies one decided match to both participants: games
// and set wins accumulate from the fully scored sets, and the side
// with fewer set wins is eliminated. This is the only code path that
// mutates the accumulator fields.
func settleMatch(m *models.Match, participants map[int]*models.Participant) error {
	p1, ok := participants[m.Participant1ID]
	if !ok {
		return fmt.Errorf("match %d references unknown participant %d", m.ID, m.Participant1ID)
	}
	p2, ok := participants[m.Participant2ID]
	if !ok {
		return fmt.Errorf("match %d references unknown participant %d", m.ID, m.Participant2ID)
	}

	for _, set := range m.Sets {
		if !set.Played() {
			continue
		}
		p1.GamesWon += *set.Participant1Score
		p1.GamesLost += *set.Participant2Score
		p2.GamesWon += *set.Participant2Score
		p2.GamesLost += *set.Participant1Score

		switch side, _ := set.WinnerSide(); side {
		case 1:
			p1.SetsWon++
		case 2:
			p2.SetsWon++
		}
	}

	loserID, ok := m.LoserID()
	if !ok {
		return ErrRoundNotFinished
	}
	participants[loserID].Status = models.ParticipantEliminated
	return nil
}

func (s *tournamentService) loadRoundMatches(ctx context.Context, tournamentID int, round models.Round) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &round)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for round %s: %w", round, err)
	}

	matchIDs := make([]int, len(matches))
	for i, m := range matches {
		matchIDs[i] = m.ID
	}
	setsByMatch, err := s.setRepo.ListByMatchIDs(ctx, matchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sets: %w", err)
	}
	for _, m := range matches {
		m.Sets = setsByMatch[m.ID]
	}
	return matches, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, tournamentID int, contentType string, banner io.Reader) (*models.Tournament, error) {
	t, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/banner", tournamentID)
	result, err := s.uploader.Upload(ctx, key, contentType, banner)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament banner: %w", err)
	}

	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist banner key: %w", err)
	}
	t.BannerKey = &result.Key
	t.BannerURL = &result.Location
	return t, nil
}

func (s *tournamentService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(progression.RoomForTournament(tournamentID), progression.Event{
		Type:    eventType,
		Payload: payload,
	})
}
