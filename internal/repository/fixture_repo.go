package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betslipai/backend/internal/models"
)

// FixtureRepo reads the fixtures table. Ingestion lives elsewhere.
type FixtureRepo struct {
	pool *pgxpool.Pool
}

func NewFixtureRepo(pool *pgxpool.Pool) *FixtureRepo {
	return &FixtureRepo{pool: pool}
}

// ListAll returns every stored fixture, including past and unscheduled ones.
func (r *FixtureRepo) ListAll(ctx context.Context) ([]models.Fixture, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, home_team, away_team, starts_at, COALESCE(league, ''), COALESCE(venue, '')
		FROM fixtures
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Fixture
	for rows.Next() {
		var f models.Fixture
		if err := rows.Scan(&f.ID, &f.HomeTeam, &f.AwayTeam, &f.StartsAt, &f.League, &f.Venue); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}
