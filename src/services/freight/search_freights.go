package freight

import (
	"context"
	"fmt"
	"freightapi/src/domain"
)

// Search valida a paginação e delega ao repositório de leitura.
func (s *FreightService) Search(ctx context.Context, query domain.SearchQuery) (domain.FreightPage, error) {
	if query.Page < 0 {
		return domain.FreightPage{}, fmt.Errorf("FreightService.Search - %w", domain.NewValidationError("page", "must be greater than or equal to 0"))
	}

	if query.Size < 1 {
		return domain.FreightPage{}, fmt.Errorf("FreightService.Search - %w", domain.NewValidationError("size", "must be greater than or equal to 1"))
	}

	if query.Size > s.maxPageSize {
		query.Size = s.maxPageSize
	}

	page, err := s.reader.Search(ctx, query)
	if err != nil {
		return domain.FreightPage{}, fmt.Errorf("FreightService.Search - %w", err)
	}

	return page, nil
}
