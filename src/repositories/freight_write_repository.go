package repositories

import (
	"context"
	"fmt"
	"freightapi/src/domain"
	"freightapi/src/domain/entities"
	"freightapi/src/infra/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FreightWriteRepository struct {
	writePool *pgxpool.Pool
}

func NewFreightWriteRepository(writePool *pgxpool.Pool) *FreightWriteRepository {
	return &FreightWriteRepository{writePool: writePool}
}

func (r *FreightWriteRepository) Create(ctx context.Context, freight entities.Freight) (entities.Freight, error) {
	query := `
		INSERT INTO freight (status, attributes, created_at, updated_at)
		VALUES ($1, $2::jsonb, NOW(), NOW())
		RETURNING ` + freightColumns

	created, err := scanFreight(r.writePool.QueryRow(ctx, query,
		postgres.NewNullText(freight.Status),
		postgres.NewNullJSON(freight.Attributes),
	))
	if err != nil {
		return entities.Freight{}, fmt.Errorf("FreightWriteRepository.Create - insert failed: %w", err)
	}

	return created, nil
}

// Update aplica só os campos marcados no patch. updated_at nunca anda para trás,
// mesmo se o relógio do banco oscilar.
func (r *FreightWriteRepository) Update(ctx context.Context, id int64, patch domain.FreightPatch) (entities.Freight, error) {
	query := `
		UPDATE freight SET
			status = CASE WHEN $2::boolean THEN $3::text ELSE status END,
			attributes = CASE WHEN $4::boolean THEN $5::jsonb ELSE attributes END,
			updated_at = GREATEST(NOW(), updated_at)
		WHERE id = $1
		RETURNING ` + freightColumns

	updated, err := scanFreight(r.writePool.QueryRow(ctx, query,
		id,
		patch.StatusSet,
		postgres.NewNullText(patch.Status),
		patch.AttributesSet,
		postgres.NewNullJSON(patch.Attributes),
	))
	if err != nil {
		if postgres.IsNoRows(err) {
			return entities.Freight{}, fmt.Errorf("FreightWriteRepository.Update - freight %d: %w", id, domain.ErrFreightNotFound)
		}
		return entities.Freight{}, fmt.Errorf("FreightWriteRepository.Update - update failed: %w", err)
	}

	return updated, nil
}

func (r *FreightWriteRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.writePool.Exec(ctx, `DELETE FROM freight WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("FreightWriteRepository.Delete - delete failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("FreightWriteRepository.Delete - freight %d: %w", id, domain.ErrFreightNotFound)
	}

	return nil
}
