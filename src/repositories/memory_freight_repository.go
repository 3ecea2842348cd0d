package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"freightapi/src/domain"
	"freightapi/src/domain/entities"
)

// MemoryFreightRepository keeps freights in process memory. Search is a linear scan,
// which is fine for local runs and tests.
type MemoryFreightRepository struct {
	mu       sync.RWMutex
	freights map[int64]entities.Freight
	lastID   int64
	now      func() time.Time
}

func NewMemoryFreightRepository() *MemoryFreightRepository {
	return NewMemoryFreightRepositoryWithClock(func() time.Time { return time.Now().UTC() })
}

func NewMemoryFreightRepositoryWithClock(now func() time.Time) *MemoryFreightRepository {
	return &MemoryFreightRepository{
		freights: make(map[int64]entities.Freight),
		now:      now,
	}
}

func (r *MemoryFreightRepository) Create(_ context.Context, freight entities.Freight) (entities.Freight, error) {
	attributes, err := normalizeAttributes(freight.Attributes)
	if err != nil {
		return entities.Freight{}, fmt.Errorf("MemoryFreightRepository.Create - %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	now := r.now()

	stored := entities.Freight{
		ID:         r.lastID,
		Status:     copyString(freight.Status),
		Attributes: attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.freights[stored.ID] = stored

	return cloneFreight(stored), nil
}

func (r *MemoryFreightRepository) GetByID(_ context.Context, id int64) (entities.Freight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	freight, ok := r.freights[id]
	if !ok {
		return entities.Freight{}, fmt.Errorf("MemoryFreightRepository.GetByID - freight %d: %w", id, domain.ErrFreightNotFound)
	}

	return cloneFreight(freight), nil
}

func (r *MemoryFreightRepository) Update(_ context.Context, id int64, patch domain.FreightPatch) (entities.Freight, error) {
	if patch.AttributesSet {
		attributes, err := normalizeAttributes(patch.Attributes)
		if err != nil {
			return entities.Freight{}, fmt.Errorf("MemoryFreightRepository.Update - %w", err)
		}
		patch.Attributes = attributes
	}
	patch.Status = copyString(patch.Status)

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.freights[id]
	if !ok {
		return entities.Freight{}, fmt.Errorf("MemoryFreightRepository.Update - freight %d: %w", id, domain.ErrFreightNotFound)
	}

	updated := patch.Apply(current)
	if now := r.now(); now.After(current.UpdatedAt) {
		updated.UpdatedAt = now
	}
	r.freights[id] = updated

	return cloneFreight(updated), nil
}

func (r *MemoryFreightRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.freights[id]; !ok {
		return fmt.Errorf("MemoryFreightRepository.Delete - freight %d: %w", id, domain.ErrFreightNotFound)
	}
	delete(r.freights, id)

	return nil
}

func (r *MemoryFreightRepository) Search(_ context.Context, query domain.SearchQuery) (domain.FreightPage, error) {
	term := strings.ToLower(query.Query)

	r.mu.RLock()
	matches := make([]entities.Freight, 0, len(r.freights))
	for _, freight := range r.freights {
		if matchesSearchTerm(freight, term) {
			matches = append(matches, freight)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	page := domain.FreightPage{
		Items: []entities.Freight{},
		Total: int64(len(matches)),
		Page:  query.Page,
		Size:  query.Size,
	}

	start := query.Offset()
	if start < 0 || start >= len(matches) {
		return page, nil
	}
	end := start + min(query.Size, len(matches)-start)

	for _, freight := range matches[start:end] {
		page.Items = append(page.Items, cloneFreight(freight))
	}

	return page, nil
}

// matchesSearchTerm expects an already lower-cased term.
func matchesSearchTerm(freight entities.Freight, term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(freight.StatusOrEmpty()), term) {
		return true
	}
	return freight.HasAttributes() && strings.Contains(strings.ToLower(string(freight.Attributes)), term)
}

// normalizeAttributes compacts the JSON so the searchable text does not depend on
// client formatting. JSON null is stored as absent.
func normalizeAttributes(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("attributes are not valid JSON: %w", err)
	}

	return buf.Bytes(), nil
}

func cloneFreight(freight entities.Freight) entities.Freight {
	freight.Status = copyString(freight.Status)
	if freight.Attributes != nil {
		freight.Attributes = append(json.RawMessage(nil), freight.Attributes...)
	}
	return freight
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	value := *s
	return &value
}
