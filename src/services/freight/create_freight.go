package freight

import (
	"context"
	"fmt"
	"freightapi/src/domain/entities"
)

// Create persiste um novo freight; id e timestamps vêm do repositório.
func (s *FreightService) Create(ctx context.Context, freight entities.Freight) (entities.Freight, error) {
	freight.ID = 0

	created, err := s.writer.Create(ctx, freight)
	if err != nil {
		return entities.Freight{}, fmt.Errorf("FreightService.Create - %w", err)
	}

	s.invalidateCache(ctx, created.ID)
	s.logger.Info("Freight created", "freight_id", created.ID)

	return created, nil
}
