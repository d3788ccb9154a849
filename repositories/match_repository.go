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
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchParticipantInvalid = errors.New("match participant conflict or invalid")
	ErrMatchTournamentInvalid  = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *models.Round) ([]*models.Match, error)
	ListByParticipant(ctx context.Context, participantID int) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (tournament_id, participant1_id, participant2_id, round, match_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID,
		m.Participant1ID,
		m.Participant2ID,
		m.Round,
		m.MatchTime,
	).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch {
			case strings.HasPrefix(pqErr.Constraint, "matches_participant"):
				return ErrMatchParticipantInvalid
			case pqErr.Constraint == "matches_tournament_id_fkey":
				return ErrMatchTournamentInvalid
			}
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

const matchColumns = `m.id, m.tournament_id, m.participant1_id, m.participant2_id, m.round, m.match_time, m.created_at`

func (r *postgresMatchRepository) scanMatch(rowScanner interface {
	Scan(dest ...interface{}) error
}, m *models.Match) error {
	return rowScanner.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Participant1ID,
		&m.Participant2ID,
		&m.Round,
		&m.MatchTime,
		&m.CreatedAt,
	)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1`

	m := &models.Match{}
	err := r.scanMatch(r.db.QueryRowContext(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// ListByTournament returns matches ordered by date; the optional round
// filter narrows to a single round.
func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *models.Round) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	args := []interface{}{tournamentID}

	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches m WHERE m.tournament_id = $1`)
	if round != nil {
		queryBuilder.WriteString(` AND m.round = $2`)
		args = append(args, *round)
	}
	queryBuilder.WriteString(` ORDER BY m.match_time ASC, m.id ASC`)

	return r.list(ctx, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListByParticipant(ctx context.Context, participantID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches m
		WHERE m.participant1_id = $1 OR m.participant2_id = $1
		ORDER BY m.match_time ASC, m.id ASC`
	return r.list(ctx, query, participantID)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := r.scanMatch(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}
