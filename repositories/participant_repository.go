package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sergiramirez/tennis-league/models"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant conflict: user already registered for this tournament")
	ErrParticipantUserInvalid       = errors.New("participant user conflict or invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
)

// UserHistoricalTotals aggregates one user's accumulators across all
// finished tournaments. Used to seed participant selection.
type UserHistoricalTotals struct {
	UserID    int
	Score     int
	SetsWon   int
	GamesWon  int
	GamesLost int
}

type ParticipantRepository interface {
	Create(ctx context.Context, p *models.Participant) error
	FindByID(ctx context.Context, id int) (*models.Participant, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.ParticipantStatus, includeUser bool) ([]*models.Participant, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Participant, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error
	UpdateAccumulators(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	UpdateScore(ctx context.Context, exec SQLExecutor, id int, score int) error
	Delete(ctx context.Context, id int) error
	HistoricalTotalsByUser(ctx context.Context, userIDs []int) (map[int]UserHistoricalTotals, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (user_id, tournament_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, score, matches_won, sets_won, games_won, games_lost, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID,
		p.TournamentID,
		p.Status,
	).Scan(&p.ID, &p.Score, &p.MatchesWon, &p.SetsWon, &p.GamesWon, &p.GamesLost, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "participants_user_id_tournament_id_key" {
					return ErrParticipantConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "participants_user_id_fkey":
					return ErrParticipantUserInvalid
				case "participants_tournament_id_fkey":
					return ErrParticipantTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Participant) error {
	return rowScanner.Scan(
		&p.ID,
		&p.UserID,
		&p.TournamentID,
		&p.Status,
		&p.Score,
		&p.MatchesWon,
		&p.SetsWon,
		&p.GamesWon,
		&p.GamesLost,
		&p.CreatedAt,
	)
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Participant, error) {
	p := &models.Participant{}
	row := r.db.QueryRowContext(ctx, query, args...)
	err := r.scanParticipant(row, p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

const participantColumns = `p.id, p.user_id, p.tournament_id, p.status, p.score,
	p.matches_won, p.sets_won, p.games_won, p.games_lost, p.created_at`

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants p WHERE p.id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants p WHERE p.user_id = $1 AND p.tournament_id = $2`
	return r.findOne(ctx, query, userID, tournamentID)
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.ParticipantStatus, includeUser bool) ([]*models.Participant, error) {
	var queryBuilder strings.Builder
	args := []interface{}{tournamentID}

	queryBuilder.WriteString(`SELECT ` + participantColumns)
	if includeUser {
		queryBuilder.WriteString(`, u.id, u.first_name, u.last_name, u.email, u.phone, u.role`)
	}
	queryBuilder.WriteString(` FROM participants p`)
	if includeUser {
		queryBuilder.WriteString(` JOIN users u ON u.id = p.user_id`)
	}
	queryBuilder.WriteString(` WHERE p.tournament_id = $1`)

	if statusFilter != nil {
		queryBuilder.WriteString(` AND p.status = $2`)
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(` ORDER BY p.created_at ASC`)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by tournament: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		var u models.User

		scanDest := []interface{}{
			&p.ID, &p.UserID, &p.TournamentID, &p.Status, &p.Score,
			&p.MatchesWon, &p.SetsWon, &p.GamesWon, &p.GamesLost, &p.CreatedAt,
		}
		if includeUser {
			scanDest = append(scanDest, &u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Role)
		}

		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		if includeUser {
			p.User = &u
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) ListByUser(ctx context.Context, userID int) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants p WHERE p.user_id = $1 ORDER BY p.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by user: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := r.scanParticipant(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipantStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

// UpdateAccumulators persists the match-result counters. Round
// settlement is the sole caller; nothing else writes these fields.
func (r *postgresParticipantRepository) UpdateAccumulators(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE participants
		SET status = $1, matches_won = $2, sets_won = $3, games_won = $4, games_lost = $5
		WHERE id = $6`
	result, err := executor.ExecContext(ctx, query,
		p.Status, p.MatchesWon, p.SetsWon, p.GamesWon, p.GamesLost, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update participant accumulators: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateScore(ctx context.Context, exec SQLExecutor, id int, score int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET score = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, score, id)
	if err != nil {
		return fmt.Errorf("failed to update participant score: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM participants WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

// HistoricalTotalsByUser sums accumulators over finished tournaments
// for each of the given users. Users with no finished history are
// absent from the result map.
func (r *postgresParticipantRepository) HistoricalTotalsByUser(ctx context.Context, userIDs []int) (map[int]UserHistoricalTotals, error) {
	if len(userIDs) == 0 {
		return map[int]UserHistoricalTotals{}, nil
	}

	query := `
		SELECT p.user_id,
		       COALESCE(SUM(p.score), 0),
		       COALESCE(SUM(p.sets_won), 0),
		       COALESCE(SUM(p.games_won), 0),
		       COALESCE(SUM(p.games_lost), 0)
		FROM participants p
		JOIN tournaments t ON t.id = p.tournament_id
		WHERE p.user_id = ANY($1) AND t.current_round = $2
		GROUP BY p.user_id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs), models.RoundFinished)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate historical totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[int]UserHistoricalTotals, len(userIDs))
	for rows.Next() {
		var t UserHistoricalTotals
		if err := rows.Scan(&t.UserID, &t.Score, &t.SetsWon, &t.GamesWon, &t.GamesLost); err != nil {
			return nil, fmt.Errorf("failed to scan historical totals row: %w", err)
		}
		totals[t.UserID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating historical totals rows: %w", err)
	}
	return totals, nil
}
