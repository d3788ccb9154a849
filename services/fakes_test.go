package services

import (
	"context"
	"slices"
	"time"

	"github.com/sergiramirez/tennis-league/models"
	"github.com/sergiramirez/tennis-league/repositories"
)

// fakeTxRunner runs the callback without any transaction; the fakes
// below ignore the executor entirely.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.nextID
	r.nextID++
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context) ([]*models.Tournament, error) {
	out := make([]*models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *models.Tournament) int { return a.ID - b.ID })
	return out, nil
}

func (r *fakeTournamentRepo) ListFinishedByUser(ctx context.Context, userID int) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range r.tournaments {
		if t.Finished() {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *models.Tournament) int { return a.ID - b.ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) UpdateCurrentRound(ctx context.Context, exec repositories.SQLExecutor, id int, round models.Round) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentRound = round
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	delete(r.tournaments, id)
	return nil
}

type fakeParticipantRepo struct {
	participants map[int]*models.Participant
	history      map[int]repositories.UserHistoricalTotals
	nextID       int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{
		participants: make(map[int]*models.Participant),
		history:      make(map[int]repositories.UserHistoricalTotals),
		nextID:       1,
	}
}

func (r *fakeParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.UserID == p.UserID && existing.TournamentID == p.TournamentID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.participants[p.ID] = p
	return nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return p, nil
}

func (r *fakeParticipantRepo) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.UserID == userID && p.TournamentID == tournamentID {
			return p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.ParticipantStatus, includeUser bool) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range r.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && p.Status != *statusFilter {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *models.Participant) int { return a.ID - b.ID })
	return out, nil
}

func (r *fakeParticipantRepo) ListByUser(ctx context.Context, userID int) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range r.participants {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *models.Participant) int { return a.ID - b.ID })
	return out, nil
}

func (r *fakeParticipantRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeParticipantRepo) UpdateAccumulators(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	stored, ok := r.participants[p.ID]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	stored.Status = p.Status
	stored.MatchesWon = p.MatchesWon
	stored.SetsWon = p.SetsWon
	stored.GamesWon = p.GamesWon
	stored.GamesLost = p.GamesLost
	return nil
}

func (r *fakeParticipantRepo) UpdateScore(ctx context.Context, exec repositories.SQLExecutor, id int, score int) error {
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Score = score
	return nil
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(r.participants, id)
	return nil
}

func (r *fakeParticipantRepo) HistoricalTotalsByUser(ctx context.Context, userIDs []int) (map[int]repositories.UserHistoricalTotals, error) {
	out := make(map[int]repositories.UserHistoricalTotals)
	for _, id := range userIDs {
		if h, ok := r.history[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	m.ID = r.nextID
	r.nextID++
	r.matches[m.ID] = m
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *models.Round) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *models.Match) int { return a.ID - b.ID })
	return out, nil
}

func (r *fakeMatchRepo) ListByParticipant(ctx context.Context, participantID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.Participant1ID == participantID || m.Participant2ID == participantID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b *models.Match) int { return a.ID - b.ID })
	return out, nil
}

type fakeSetRepo struct {
	sets   map[int]*models.Set
	nextID int
}

func newFakeSetRepo() *fakeSetRepo {
	return &fakeSetRepo{sets: make(map[int]*models.Set), nextID: 1}
}

func (r *fakeSetRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, sets []*models.Set) error {
	for _, s := range sets {
		s.ID = r.nextID
		r.nextID++
		r.sets[s.ID] = s
	}
	return nil
}

func (r *fakeSetRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.Set, error) {
	var out []*models.Set
	for _, s := range r.sets {
		if s.MatchID == matchID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *models.Set) int { return a.SetNumber - b.SetNumber })
	return out, nil
}

func (r *fakeSetRepo) ListByMatchIDs(ctx context.Context, matchIDs []int) (map[int][]*models.Set, error) {
	out := make(map[int][]*models.Set)
	for _, id := range matchIDs {
		sets, _ := r.ListByMatch(ctx, id)
		out[id] = sets
	}
	return out, nil
}

func (r *fakeSetRepo) UpdateScores(ctx context.Context, exec repositories.SQLExecutor, id int, p1Score, p2Score *int) error {
	s, ok := r.sets[id]
	if !ok {
		return repositories.ErrSetNotFound
	}
	s.Participant1Score = p1Score
	s.Participant2Score = p2Score
	return nil
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Phone == user.Phone {
			return repositories.ErrUserPhoneConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			// Return a copy, like a row-scanning repository would, so
			// callers mutating the result don't alter the stored user.
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range r.users {
		if u.EmailConfirmationToken != nil && *u.EmailConfirmationToken == token {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range r.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ConfirmEmail(ctx context.Context, id int) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.EmailConfirmed = true
	u.EmailConfirmationToken = nil
	return nil
}

func (r *fakeUserRepo) SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

// fakeStatsRepo derives its aggregates from the participant fake, so
// stats tests exercise the same data the engine wrote.
type fakeStatsRepo struct {
	participants *fakeParticipantRepo
	users        *fakeUserRepo
}

func (r *fakeStatsRepo) SumScoresByUser(ctx context.Context) ([]*models.UserScoreTotal, error) {
	totals := make(map[int]int)
	for _, p := range r.participants.participants {
		totals[p.UserID] += p.Score
	}
	var out []*models.UserScoreTotal
	for userID, total := range totals {
		out = append(out, &models.UserScoreTotal{User: r.users.users[userID], TotalPoints: total})
	}
	slices.SortFunc(out, func(a, b *models.UserScoreTotal) int {
		if a.TotalPoints != b.TotalPoints {
			return b.TotalPoints - a.TotalPoints
		}
		return a.User.ID - b.User.ID
	})
	return out, nil
}

func (r *fakeStatsRepo) AggregateTotalsByUser(ctx context.Context) ([]*models.UserAggregate, error) {
	byUser := make(map[int]*models.UserAggregate)
	var out []*models.UserAggregate
	for _, p := range r.participants.participants {
		agg, ok := byUser[p.UserID]
		if !ok {
			agg = &models.UserAggregate{User: r.users.users[p.UserID]}
			byUser[p.UserID] = agg
			out = append(out, agg)
		}
		agg.SetsWon += p.SetsWon
		agg.GamesWon += p.GamesWon
		agg.GamesLost += p.GamesLost
	}
	slices.SortFunc(out, func(a, b *models.UserAggregate) int { return a.User.ID - b.User.ID })
	return out, nil
}

func (r *fakeStatsRepo) TotalPointsForUser(ctx context.Context, userID int) (int, error) {
	total := 0
	for _, p := range r.participants.participants {
		if p.UserID == userID {
			total += p.Score
		}
	}
	return total, nil
}
