package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergiramirez/tennis-league/models"
)

type statsEnv struct {
	service         StatsService
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	matchRepo       *fakeMatchRepo
	setRepo         *fakeSetRepo
	userRepo        *fakeUserRepo
}

func newStatsEnv() *statsEnv {
	env := &statsEnv{
		tournamentRepo:  newFakeTournamentRepo(),
		participantRepo: newFakeParticipantRepo(),
		matchRepo:       newFakeMatchRepo(),
		setRepo:         newFakeSetRepo(),
		userRepo:        newFakeUserRepo(),
	}
	env.service = NewStatsService(
		&fakeStatsRepo{participants: env.participantRepo, users: env.userRepo},
		env.tournamentRepo,
		env.participantRepo,
		env.matchRepo,
		env.setRepo,
		env.userRepo,
		func() *rand.Rand { return rand.New(rand.NewSource(7)) },
	)
	return env
}

func (env *statsEnv) addUser(first, last string) *models.User {
	u := &models.User{
		FirstName: first,
		LastName:  last,
		Email:     first + "." + last + "@example.com",
		Phone:     first + last,
		Role:      models.RolePlayer,
	}
	_ = env.userRepo.Create(context.Background(), u)
	return u
}

func (env *statsEnv) addFinishedTournament(name string) *models.Tournament {
	t := &models.Tournament{
		Name:                  name,
		RegistrationCloseDate: time.Now().Add(-96 * time.Hour),
		StartDate:             time.Now().Add(-72 * time.Hour),
		EndDate:               time.Now().Add(-24 * time.Hour),
		CurrentRound:          models.RoundFinished,
	}
	_ = env.tournamentRepo.Create(context.Background(), t)
	return t
}

func TestUserStatistics(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	alice := env.addUser("Alicia", "Moreno")
	bruno := env.addUser("Bruno", "Díaz")
	tournament := env.addFinishedTournament("Clausura 2025")

	pa := &models.Participant{UserID: alice.ID, TournamentID: tournament.ID, Status: models.ParticipantActive, Score: 2000, User: alice}
	pb := &models.Participant{UserID: bruno.ID, TournamentID: tournament.ID, Status: models.ParticipantEliminated, Score: 1500, User: bruno}
	require.NoError(t, env.participantRepo.Create(ctx, pa))
	require.NoError(t, env.participantRepo.Create(ctx, pb))

	m := &models.Match{
		TournamentID:   tournament.ID,
		Participant1ID: pa.ID,
		Participant2ID: pb.ID,
		Round:          models.RoundOf16,
		MatchTime:      time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, env.matchRepo.Create(ctx, nil, m))
	six, four, three := 6, 4, 3
	sets := []*models.Set{
		{MatchID: m.ID, SetNumber: 1, Participant1Score: &six, Participant2Score: &four},
		{MatchID: m.ID, SetNumber: 2, Participant1Score: &six, Participant2Score: &three},
		{MatchID: m.ID, SetNumber: 3},
	}
	require.NoError(t, env.setRepo.CreateBatch(ctx, nil, sets))

	stats, err := env.service.UserStatistics(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, stats.UserID)
	assert.Equal(t, 2000, stats.TotalPoints)
	require.Len(t, stats.Tournaments, 1)

	breakdown := stats.Tournaments[0]
	assert.Equal(t, "Clausura 2025", breakdown.TournamentName)
	assert.Equal(t, 2000, breakdown.Score)
	require.Len(t, breakdown.Matches, 1)

	result := breakdown.Matches[0]
	assert.Equal(t, models.OutcomeWon, result.Outcome)
	assert.Equal(t, "Bruno Díaz", result.Opponent)
	require.Len(t, result.Sets, 2)
	assert.Equal(t, 6, result.Sets[0].GamesWon)
	assert.Equal(t, 4, result.Sets[0].GamesLost)

	// The same match from the loser's side.
	stats, err = env.service.UserStatistics(ctx, bruno.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, stats.TotalPoints)
	require.Len(t, stats.Tournaments, 1)
	result = stats.Tournaments[0].Matches[0]
	assert.Equal(t, models.OutcomeLost, result.Outcome)
	assert.Equal(t, "Alicia Moreno", result.Opponent)
	assert.Equal(t, 4, result.Sets[0].GamesWon)
	assert.Equal(t, 6, result.Sets[0].GamesLost)
}

func TestUserStatisticsUnknownUser(t *testing.T) {
	env := newStatsEnv()
	_, err := env.service.UserStatistics(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPointsRankingSharesRankOnTies(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	users := []*models.User{
		env.addUser("Ana", "Ruiz"),
		env.addUser("Berta", "Lago"),
		env.addUser("Carlos", "Vega"),
		env.addUser("Diego", "Sanz"),
	}
	tournament := env.addFinishedTournament("Apertura 2025")
	scores := []int{3000, 2000, 2000, 1000}
	for i, u := range users {
		p := &models.Participant{UserID: u.ID, TournamentID: tournament.ID, Status: models.ParticipantActive, Score: scores[i]}
		require.NoError(t, env.participantRepo.Create(ctx, p))
	}

	ranking, err := env.service.PointsRanking(ctx)
	require.NoError(t, err)
	require.Len(t, ranking, 4)

	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, 2, ranking[1].Rank)
	assert.Equal(t, 2, ranking[2].Rank)
	assert.Equal(t, 3, ranking[3].Rank)
	assert.Equal(t, 3000, ranking[0].TotalPoints)
	assert.Equal(t, 1000, ranking[3].TotalPoints)
}

func TestTournamentStandingsExcludeApplied(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	tournament := env.addFinishedTournament("Invierno 2025")
	active := &models.Participant{UserID: 1, TournamentID: tournament.ID, Status: models.ParticipantActive, Score: 2000}
	eliminated := &models.Participant{UserID: 2, TournamentID: tournament.ID, Status: models.ParticipantEliminated, Score: 1500}
	applied := &models.Participant{UserID: 3, TournamentID: tournament.ID, Status: models.ParticipantApplied}
	require.NoError(t, env.participantRepo.Create(ctx, active))
	require.NoError(t, env.participantRepo.Create(ctx, eliminated))
	require.NoError(t, env.participantRepo.Create(ctx, applied))

	standings, err := env.service.TournamentStandings(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, active.ID, standings[0].ID)
	assert.Equal(t, eliminated.ID, standings[1].ID)
}

func TestGlobalRankingOrdersBySets(t *testing.T) {
	env := newStatsEnv()
	ctx := context.Background()

	strong := env.addUser("Elena", "Prado")
	weak := env.addUser("Fermín", "Costa")
	tournament := env.addFinishedTournament("Primavera 2025")

	require.NoError(t, env.participantRepo.Create(ctx, &models.Participant{
		UserID: strong.ID, TournamentID: tournament.ID, Status: models.ParticipantActive,
		SetsWon: 9, GamesWon: 60, GamesLost: 30,
	}))
	require.NoError(t, env.participantRepo.Create(ctx, &models.Participant{
		UserID: weak.ID, TournamentID: tournament.ID, Status: models.ParticipantEliminated,
		SetsWon: 2, GamesWon: 30, GamesLost: 55,
	}))

	ranking, err := env.service.GlobalRanking(ctx)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, strong.ID, ranking[0].User.ID)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, weak.ID, ranking[1].User.ID)
	assert.Equal(t, 2, ranking[1].Rank)
}
