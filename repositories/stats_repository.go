package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sergiramirez/tennis-league/models"
)

// StatsRepository serves the aggregate queries behind the ranking
// views. Read-only; all mutation goes through the entity repositories.
type StatsRepository interface {
	SumScoresByUser(ctx context.Context) ([]*models.UserScoreTotal, error)
	AggregateTotalsByUser(ctx context.Context) ([]*models.UserAggregate, error)
	TotalPointsForUser(ctx context.Context, userID int) (int, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

// SumScoresByUser returns every user that has at least one participant
// record together with the sum of their scores, highest first.
func (r *postgresStatsRepository) SumScoresByUser(ctx context.Context) ([]*models.UserScoreTotal, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.email, u.phone, u.role,
		       COALESCE(SUM(p.score), 0) AS total_points
		FROM users u
		JOIN participants p ON p.user_id = u.id
		GROUP BY u.id, u.first_name, u.last_name, u.email, u.phone, u.role
		ORDER BY total_points DESC, u.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum scores by user: %w", err)
	}
	defer rows.Close()

	totals := make([]*models.UserScoreTotal, 0)
	for rows.Next() {
		var u models.User
		t := &models.UserScoreTotal{User: &u}
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Role, &t.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan score total row: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score total rows: %w", err)
	}
	return totals, nil
}

// AggregateTotalsByUser returns lifetime set and game totals for every
// user with at least one participation. Ordering of ties is left to
// the caller, which applies the per-request random tie-break.
func (r *postgresStatsRepository) AggregateTotalsByUser(ctx context.Context) ([]*models.UserAggregate, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.email, u.phone, u.role,
		       COALESCE(SUM(p.sets_won), 0),
		       COALESCE(SUM(p.games_won), 0),
		       COALESCE(SUM(p.games_lost), 0)
		FROM users u
		JOIN participants p ON p.user_id = u.id
		GROUP BY u.id, u.first_name, u.last_name, u.email, u.phone, u.role`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate totals by user: %w", err)
	}
	defer rows.Close()

	aggregates := make([]*models.UserAggregate, 0)
	for rows.Next() {
		var u models.User
		a := &models.UserAggregate{User: &u}
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Role,
			&a.SetsWon, &a.GamesWon, &a.GamesLost); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}
	return aggregates, nil
}

func (r *postgresStatsRepository) TotalPointsForUser(ctx context.Context, userID int) (int, error) {
	query := `SELECT COALESCE(SUM(score), 0) FROM participants WHERE user_id = $1`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum points for user %d: %w", userID, err)
	}
	return total, nil
}
