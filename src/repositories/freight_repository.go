package repositories

import (
	"context"
	"freightapi/src/domain"
	"freightapi/src/domain/entities"
)

// FreightReader is the read side: single lookup plus the paginated search.
type FreightReader interface {
	GetByID(ctx context.Context, id int64) (entities.Freight, error)
	Search(ctx context.Context, query domain.SearchQuery) (domain.FreightPage, error)
}

// FreightWriter is the only place allowed to assign ids and timestamps.
type FreightWriter interface {
	Create(ctx context.Context, freight entities.Freight) (entities.Freight, error)
	Update(ctx context.Context, id int64, patch domain.FreightPatch) (entities.Freight, error)
	Delete(ctx context.Context, id int64) error
}

// CacheInvalidator drops cached reads touching the given freights.
type CacheInvalidator interface {
	InvalidateByFreightIDs(ctx context.Context, freightIDs []int64) error
}
