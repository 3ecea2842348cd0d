package freight

import (
	"context"
	"fmt"
	"freightapi/src/domain"
	"freightapi/src/domain/entities"
)

// Update applies a partial patch. An empty patch still refreshes updatedAt.
func (s *FreightService) Update(ctx context.Context, id int64, patch domain.FreightPatch) (entities.Freight, error) {
	updated, err := s.writer.Update(ctx, id, patch)
	if err != nil {
		return entities.Freight{}, fmt.Errorf("FreightService.Update - %w", err)
	}

	s.invalidateCache(ctx, id)
	s.logger.Info("Freight updated",
		"freight_id", id,
		"status_changed", patch.StatusSet,
		"attributes_changed", patch.AttributesSet)

	return updated, nil
}
