package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sergiramirez/tennis-league/models"
)

var (
	ErrSetNotFound     = errors.New("set not found")
	ErrSetMatchInvalid = errors.New("set match conflict or invalid")
)

type SetRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, sets []*models.Set) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.Set, error)
	ListByMatchIDs(ctx context.Context, matchIDs []int) (map[int][]*models.Set, error)
	UpdateScores(ctx context.Context, exec SQLExecutor, id int, p1Score, p2Score *int) error
}

type postgresSetRepository struct {
	db *sql.DB
}

func NewPostgresSetRepository(db *sql.DB) SetRepository {
	return &postgresSetRepository{db: db}
}

func (r *postgresSetRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSetRepository) CreateBatch(ctx context.Context, exec SQLExecutor, sets []*models.Set) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO sets (match_id, set_number, participant1_score, participant2_score)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for _, s := range sets {
		err := executor.QueryRowContext(ctx, query,
			s.MatchID,
			s.SetNumber,
			s.Participant1Score,
			s.Participant2Score,
		).Scan(&s.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" && pqErr.Constraint == "sets_match_id_fkey" {
				return ErrSetMatchInvalid
			}
			return fmt.Errorf("failed to create set %d for match %d: %w", s.SetNumber, s.MatchID, err)
		}
	}
	return nil
}

func (r *postgresSetRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.Set, error) {
	query := `
		SELECT id, match_id, set_number, participant1_score, participant2_score
		FROM sets
		WHERE match_id = $1
		ORDER BY set_number ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets for match %d: %w", matchID, err)
	}
	defer rows.Close()

	sets := make([]*models.Set, 0)
	for rows.Next() {
		s := &models.Set{}
		if err := rows.Scan(&s.ID, &s.MatchID, &s.SetNumber, &s.Participant1Score, &s.Participant2Score); err != nil {
			return nil, fmt.Errorf("failed to scan set row: %w", err)
		}
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating set rows: %w", err)
	}
	return sets, nil
}

// ListByMatchIDs loads the sets of several matches in one round trip,
// keyed by match ID. Round settlement uses this to avoid N queries.
func (r *postgresSetRepository) ListByMatchIDs(ctx context.Context, matchIDs []int) (map[int][]*models.Set, error) {
	result := make(map[int][]*models.Set, len(matchIDs))
	if len(matchIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, match_id, set_number, participant1_score, participant2_score
		FROM sets
		WHERE match_id = ANY($1)
		ORDER BY match_id ASC, set_number ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(matchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list sets for matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &models.Set{}
		if err := rows.Scan(&s.ID, &s.MatchID, &s.SetNumber, &s.Participant1Score, &s.Participant2Score); err != nil {
			return nil, fmt.Errorf("failed to scan set row: %w", err)
		}
		result[s.MatchID] = append(result[s.MatchID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating set rows: %w", err)
	}
	return result, nil
}

func (r *postgresSetRepository) UpdateScores(ctx context.Context, exec SQLExecutor, id int, p1Score, p2Score *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE sets SET participant1_score = $1, participant2_score = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, p1Score, p2Score, id)
	if err != nil {
		return fmt.Errorf("failed to update set scores: %w", err)
	}
	return checkAffectedRows(result, ErrSetNotFound)
}
