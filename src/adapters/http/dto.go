package http

import (
	"encoding/json"
	"time"

	"freightapi/src/domain"
	"freightapi/src/domain/entities"
)

type FreightDTO struct {
	ID         int64           `json:"id"`
	Status     *string         `json:"status"`
	Attributes json.RawMessage `json:"attributes"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type FreightPageDTO struct {
	Items      []*FreightDTO `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	TotalPages int           `json:"totalPages"`
	Last       bool          `json:"last"`
}

type ErrorDTO struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func MapFreightToResponse(freight entities.Freight) *FreightDTO {
	return &FreightDTO{
		ID:         freight.ID,
		Status:     freight.Status,
		Attributes: freight.Attributes,
		CreatedAt:  freight.CreatedAt,
		UpdatedAt:  freight.UpdatedAt,
	}
}

func MapPageToResponse(page domain.FreightPage) *FreightPageDTO {
	items := make([]*FreightDTO, 0, len(page.Items))
	for _, freight := range page.Items {
		items = append(items, MapFreightToResponse(freight))
	}

	return &FreightPageDTO{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Size:       page.Size,
		TotalPages: page.TotalPages(),
		Last:       page.IsLast(),
	}
}
