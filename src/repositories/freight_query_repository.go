package repositories

import (
	"context"
	"fmt"
	"freightapi/src/domain"
	"freightapi/src/domain/entities"
	"freightapi/src/infra/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const freightColumns = `id, status, attributes, created_at, updated_at`

// O filtro replica a busca original: texto do status OU o JSONB serializado como texto.
const searchCondition = `
	COALESCE(status, '') ILIKE '%' || $1 || '%'
	OR COALESCE(CAST(attributes AS TEXT), '') ILIKE '%' || $1 || '%'`

type FreightQueryRepository struct {
	pool *pgxpool.Pool
}

func NewFreightQueryRepository(pool *pgxpool.Pool) *FreightQueryRepository {
	return &FreightQueryRepository{pool: pool}
}

func (r *FreightQueryRepository) GetByID(ctx context.Context, id int64) (entities.Freight, error) {
	query := `SELECT ` + freightColumns + ` FROM freight WHERE id = $1`

	freight, err := scanFreight(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return entities.Freight{}, fmt.Errorf("FreightQueryRepository.GetByID - freight %d: %w", id, domain.ErrFreightNotFound)
		}
		return entities.Freight{}, fmt.Errorf("FreightQueryRepository.GetByID - query failed: %w", err)
	}

	return freight, nil
}

func (r *FreightQueryRepository) Search(ctx context.Context, query domain.SearchQuery) (domain.FreightPage, error) {
	term := postgres.EscapeLike(query.Query)

	page := domain.FreightPage{
		Items: []entities.Freight{},
		Page:  query.Page,
		Size:  query.Size,
	}

	countQuery := `SELECT COUNT(*) FROM freight WHERE ` + searchCondition
	if err := r.pool.QueryRow(ctx, countQuery, term).Scan(&page.Total); err != nil {
		return domain.FreightPage{}, fmt.Errorf("FreightQueryRepository.Search - count query failed: %w", err)
	}

	if page.Total == 0 || int64(query.Offset()) >= page.Total {
		return page, nil
	}

	selectQuery := `
		SELECT ` + freightColumns + `
		FROM freight
		WHERE ` + searchCondition + `
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, selectQuery, term, query.Size, query.Offset())
	if err != nil {
		return domain.FreightPage{}, fmt.Errorf("FreightQueryRepository.Search - select query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		freight, err := scanFreight(rows)
		if err != nil {
			return domain.FreightPage{}, fmt.Errorf("FreightQueryRepository.Search - failed to scan freight: %w", err)
		}
		page.Items = append(page.Items, freight)
	}

	if err := rows.Err(); err != nil {
		return domain.FreightPage{}, fmt.Errorf("FreightQueryRepository.Search - error iterating rows: %w", err)
	}

	return page, nil
}

func scanFreight(row pgx.Row) (entities.Freight, error) {
	var freight entities.Freight
	var attributes []byte

	if err := row.Scan(&freight.ID, &freight.Status, &attributes, &freight.CreatedAt, &freight.UpdatedAt); err != nil {
		return entities.Freight{}, err
	}

	if len(attributes) > 0 {
		freight.Attributes = attributes
	}

	return freight, nil
}
