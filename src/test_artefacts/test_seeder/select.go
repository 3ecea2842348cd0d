package test_seeder

import (
	"context"
	"errors"

	"freightapi/src/domain/entities"

	"github.com/jackc/pgx/v5"
)

// SelectFreightByID reads the row directly, bypassing the repositories. The bool is
// false when the row does not exist.
func (ts TestSeeder) SelectFreightByID(ctx context.Context, id int64) (entities.Freight, bool, error) {
	query := `SELECT id, status, attributes, created_at, updated_at FROM freight WHERE id = $1`

	var freight entities.Freight
	var attributes []byte
	err := ts.pool.QueryRow(ctx, query, id).Scan(
		&freight.ID,
		&freight.Status,
		&attributes,
		&freight.CreatedAt,
		&freight.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Freight{}, false, nil
	}
	if err != nil {
		return entities.Freight{}, false, err
	}

	freight.Attributes = attributes
	return freight, true, nil
}

func (ts TestSeeder) CountFreights(ctx context.Context) (int64, error) {
	var count int64
	err := ts.pool.QueryRow(ctx, `SELECT COUNT(*) FROM freight`).Scan(&count)
	return count, err
}
