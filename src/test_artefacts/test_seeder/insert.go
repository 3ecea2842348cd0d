package test_seeder

import (
	"context"
	"fmt"

	"freightapi/src/domain/entities"
	"freightapi/src/infra/postgres"
)

// InsertFreight inserts a freight with the given timestamps and sets its generated id.
func (ts TestSeeder) InsertFreight(ctx context.Context, freight *entities.Freight) {
	query := `
		INSERT INTO freight (status, attributes, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $4) RETURNING id`

	err := ts.pool.QueryRow(ctx, query,
		postgres.NewNullText(freight.Status),
		postgres.NewNullJSON(freight.Attributes),
		freight.CreatedAt,
		freight.UpdatedAt,
	).Scan(&freight.ID)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertFreight failed: %v", err))
	}
}

func (ts TestSeeder) InsertFreights(ctx context.Context, freights []*entities.Freight) {
	for _, freight := range freights {
		ts.InsertFreight(ctx, freight)
	}
}
