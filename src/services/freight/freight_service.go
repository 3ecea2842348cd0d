package freight

import (
	"context"
	"fmt"
	"freightapi/src/domain"
	"freightapi/src/domain/entities"
	"freightapi/src/repositories"
	"log/slog"
)

type FreightService struct {
	logger      *slog.Logger
	reader      repositories.FreightReader
	writer      repositories.FreightWriter
	cache       repositories.CacheInvalidator
	maxPageSize int
}

// NewFreightService monta o serviço. cache pode ser nil quando não há Redis.
func NewFreightService(
	logger *slog.Logger,
	reader repositories.FreightReader,
	writer repositories.FreightWriter,
	cache repositories.CacheInvalidator,
) *FreightService {
	return &FreightService{
		logger:      logger,
		reader:      reader,
		writer:      writer,
		cache:       cache,
		maxPageSize: domain.MaxPageSize,
	}
}

// WithMaxPageSize overrides the page size clamp used by Search.
func (s *FreightService) WithMaxPageSize(maxPageSize int) *FreightService {
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

func (s *FreightService) GetByID(ctx context.Context, id int64) (entities.Freight, error) {
	freight, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return entities.Freight{}, fmt.Errorf("FreightService.GetByID - %w", err)
	}

	return freight, nil
}

func (s *FreightService) Delete(ctx context.Context, id int64) error {
	if err := s.writer.Delete(ctx, id); err != nil {
		return fmt.Errorf("FreightService.Delete - %w", err)
	}

	s.invalidateCache(ctx, id)
	s.logger.Info("Freight deleted", "freight_id", id)

	return nil
}

// invalidateCache runs after a successful write. The write already happened, so a
// cache failure is logged and stale entries expire with the TTL.
func (s *FreightService) invalidateCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.InvalidateByFreightIDs(ctx, []int64{id}); err != nil {
		s.logger.Error("Failed to invalidate freight cache", "freight_id", id, "error", err)
	}
}
