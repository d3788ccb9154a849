package services

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergiramirez/tennis-league/models"
	"github.com/sergiramirez/tennis-league/repositories"
)

type tournamentEnv struct {
	service         TournamentService
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	matchRepo       *fakeMatchRepo
	setRepo         *fakeSetRepo
}

func newTournamentEnv() *tournamentEnv {
	env := &tournamentEnv{
		tournamentRepo:  newFakeTournamentRepo(),
		participantRepo: newFakeParticipantRepo(),
		matchRepo:       newFakeMatchRepo(),
		setRepo:         newFakeSetRepo(),
	}
	env.service = NewTournamentService(
		fakeTxRunner{},
		env.tournamentRepo,
		env.participantRepo,
		env.matchRepo,
		env.setRepo,
		nil,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func() *rand.Rand { return rand.New(rand.NewSource(42)) },
	)
	return env
}

func (env *tournamentEnv) addTournament(round models.Round) *models.Tournament {
	t := &models.Tournament{
		Name:                  "Open de Verano",
		RegistrationCloseDate: time.Now().Add(24 * time.Hour),
		StartDate:             time.Now().Add(48 * time.Hour),
		EndDate:               time.Now().Add(96 * time.Hour),
		CurrentRound:          round,
	}
	_ = env.tournamentRepo.Create(context.Background(), t)
	return t
}

func (env *tournamentEnv) addParticipant(tournamentID, userID int, status models.ParticipantStatus) *models.Participant {
	p := &models.Participant{UserID: userID, TournamentID: tournamentID, Status: status}
	_ = env.participantRepo.Create(context.Background(), p)
	return p
}

func (env *tournamentEnv) scoreMatch(t *testing.T, matchID int, p1Games, p2Games []int) {
	t.Helper()
	sets, err := env.setRepo.ListByMatch(context.Background(), matchID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(sets), len(p1Games))
	for i := range p1Games {
		g1, g2 := p1Games[i], p2Games[i]
		sets[i].Participant1Score = &g1
		sets[i].Participant2Score = &g2
	}
}

func TestCreateValidatesDates(t *testing.T) {
	env := newTournamentEnv()
	now := time.Now()

	_, err := env.service.Create(context.Background(), CreateTournamentInput{
		Name:                  "",
		RegistrationCloseDate: now,
		StartDate:             now.Add(time.Hour),
		EndDate:               now.Add(2 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrTournamentNameRequired)

	_, err = env.service.Create(context.Background(), CreateTournamentInput{
		Name:                  "Copa",
		RegistrationCloseDate: now.Add(2 * time.Hour),
		StartDate:             now.Add(time.Hour),
		EndDate:               now.Add(3 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrTournamentInvalidRegDate)

	_, err = env.service.Create(context.Background(), CreateTournamentInput{
		Name:                  "Copa",
		RegistrationCloseDate: now,
		StartDate:             now.Add(2 * time.Hour),
		EndDate:               now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)
}

func TestApplyAndWithdraw(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)

	p, err := env.service.Apply(context.Background(), tournament.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantApplied, p.Status)

	_, err = env.service.Apply(context.Background(), tournament.ID, 7)
	assert.ErrorIs(t, err, ErrRegistrationConflict)

	require.NoError(t, env.service.Withdraw(context.Background(), tournament.ID, 7))

	_, err = env.participantRepo.FindByUserAndTournament(context.Background(), 7, tournament.ID)
	assert.Error(t, err)
}

func TestWithdrawAfterSelectionRefused(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	env.addParticipant(tournament.ID, 7, models.ParticipantActive)

	err := env.service.Withdraw(context.Background(), tournament.ID, 7)
	assert.ErrorIs(t, err, ErrWithdrawNotAllowed)
}

func TestApplyAfterRegistrationCloseRefused(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	stored := env.tournamentRepo.tournaments[tournament.ID]
	stored.RegistrationCloseDate = time.Now().Add(-time.Hour)

	_, err := env.service.Apply(context.Background(), tournament.ID, 7)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestSelectParticipantsPromotesStrongestApplicants(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)

	env.addParticipant(tournament.ID, 1, models.ParticipantApplied)
	env.addParticipant(tournament.ID, 2, models.ParticipantApplied)
	env.addParticipant(tournament.ID, 3, models.ParticipantApplied)

	env.participantRepo.history[1] = historyWithScore(1, 2000)
	env.participantRepo.history[2] = historyWithScore(2, 500)
	env.participantRepo.history[3] = historyWithScore(3, 1000)

	selected, err := env.service.SelectParticipants(context.Background(), tournament.ID, 2)
	require.NoError(t, err)
	require.Len(t, selected, 2)

	selectedUsers := []int{selected[0].UserID, selected[1].UserID}
	assert.ElementsMatch(t, []int{1, 3}, selectedUsers)

	for _, p := range env.participantRepo.participants {
		if p.UserID == 2 {
			assert.Equal(t, models.ParticipantApplied, p.Status)
		} else {
			assert.Equal(t, models.ParticipantActive, p.Status)
		}
	}
}

func TestSelectParticipantsRequiresApplicants(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)

	_, err := env.service.SelectParticipants(context.Background(), tournament.ID, 0)
	assert.ErrorIs(t, err, ErrNoApplicants)
}

func TestSelectParticipantsAfterStartRefused(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundOf16)

	_, err := env.service.SelectParticipants(context.Background(), tournament.ID, 0)
	assert.ErrorIs(t, err, ErrSelectionClosed)
}

func TestSettleRoundOpensFirstRound(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	env.addParticipant(tournament.ID, 1, models.ParticipantActive)
	env.addParticipant(tournament.ID, 2, models.ParticipantActive)

	updated, err := env.service.SettleRound(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundOf16, updated.CurrentRound)

	matches, err := env.matchRepo.ListByTournament(context.Background(), tournament.ID, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.RoundOf16, matches[0].Round)

	sets, err := env.setRepo.ListByMatch(context.Background(), matches[0].ID)
	require.NoError(t, err)
	assert.Len(t, sets, models.SetsPerMatch)
	for _, s := range sets {
		assert.False(t, s.Played())
	}
}

func TestSettleRoundWithoutActiveParticipants(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	env.addParticipant(tournament.ID, 1, models.ParticipantApplied)

	_, err := env.service.SettleRound(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrNoEligibleParticipants)
}

func TestSettleRoundRefusesUndecidedMatches(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	env.addParticipant(tournament.ID, 1, models.ParticipantActive)
	env.addParticipant(tournament.ID, 2, models.ParticipantActive)

	_, err := env.service.SettleRound(context.Background(), tournament.ID)
	require.NoError(t, err)

	_, err = env.service.SettleRound(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrRoundNotFinished)
}

func TestSettleRoundAdvancesAndAccumulates(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	env.addParticipant(tournament.ID, 1, models.ParticipantActive)
	env.addParticipant(tournament.ID, 2, models.ParticipantActive)

	_, err := env.service.SettleRound(context.Background(), tournament.ID)
	require.NoError(t, err)

	matches, err := env.matchRepo.ListByTournament(context.Background(), tournament.ID, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	match := matches[0]

	// Side one takes the match 6-4, 6-3, 6-2.
	env.scoreMatch(t, match.ID, []int{6, 6, 6}, []int{4, 3, 2})

	updated, err := env.service.SettleRound(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundQuarterfinal, updated.CurrentRound)

	winnerID, loserID := match.Participant1ID, match.Participant2ID
	winner := env.participantRepo.participants[winnerID]
	loser := env.participantRepo.participants[loserID]

	assert.Equal(t, models.ParticipantActive, winner.Status)
	assert.Equal(t, models.ParticipantEliminated, loser.Status)

	assert.Equal(t, 1, winner.MatchesWon)
	assert.Equal(t, 3, winner.SetsWon)
	assert.Equal(t, 18, winner.GamesWon)
	assert.Equal(t, 9, winner.GamesLost)

	assert.Equal(t, 0, loser.MatchesWon)
	assert.Equal(t, 0, loser.SetsWon)
	assert.Equal(t, 9, loser.GamesWon)
	assert.Equal(t, 18, loser.GamesLost)

	// Points redistributed over both contenders.
	assert.Equal(t, 2000, winner.Score)
	assert.Equal(t, 1500, loser.Score)

	// The lone survivor gets a bye, so no quarterfinal match exists.
	quarter := models.RoundQuarterfinal
	next, err := env.matchRepo.ListByTournament(context.Background(), tournament.ID, &quarter)
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestSettleRoundOnFinishedTournament(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundFinished)

	_, err := env.service.SettleRound(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentFinished)
}

func TestRoundFinished(t *testing.T) {
	env := newTournamentEnv()
	tournament := env.addTournament(models.RoundNotStarted)
	env.addParticipant(tournament.ID, 1, models.ParticipantActive)
	env.addParticipant(tournament.ID, 2, models.ParticipantActive)

	done, err := env.service.RoundFinished(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.False(t, done)

	_, err = env.service.SettleRound(context.Background(), tournament.ID)
	require.NoError(t, err)

	done, err = env.service.RoundFinished(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.False(t, done)

	matches, err := env.matchRepo.ListByTournament(context.Background(), tournament.ID, nil)
	require.NoError(t, err)
	env.scoreMatch(t, matches[0].ID, []int{6, 6, 6}, []int{0, 0, 0})

	done, err = env.service.RoundFinished(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.True(t, done)
}

func historyWithScore(userID, score int) repositories.UserHistoricalTotals {
	return repositories.UserHistoricalTotals{UserID: userID, Score: score}
}
