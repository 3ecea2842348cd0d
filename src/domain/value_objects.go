package domain

import (
	"encoding/json"
	"errors"
	"freightapi/src/domain/entities"
	"math"
)

var (
	ErrFreightNotFound = errors.New("freight not found")

	ErrValidation = errors.New("invalid request")

	ErrUnavailableServer = errors.New("Oops, something unexpected happened. Please try again later.")
)

// ValidationError describes a rejected input field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// FreightPatch carrega apenas os campos enviados no update.
// Um campo com Set=false não é tocado; com Set=true o valor (inclusive nil) é gravado.
type FreightPatch struct {
	Status        *string
	StatusSet     bool
	Attributes    json.RawMessage
	AttributesSet bool
}

func (p FreightPatch) IsEmpty() bool {
	return !p.StatusSet && !p.AttributesSet
}

// Apply returns a copy of freight with the set fields of the patch applied.
// Timestamps are left untouched; they belong to the store.
func (p FreightPatch) Apply(freight entities.Freight) entities.Freight {
	if p.StatusSet {
		freight.Status = p.Status
	}
	if p.AttributesSet {
		freight.Attributes = p.Attributes
	}
	return freight
}

// SearchQuery descreve uma busca paginada (página começa em zero).
type SearchQuery struct {
	Query string
	Page  int
	Size  int
}

// Offset satura em math.MaxInt: uma página absurda vira "depois do fim", nunca negativa.
func (q SearchQuery) Offset() int {
	if q.Page <= 0 || q.Size <= 0 {
		return 0
	}
	if q.Page > math.MaxInt/q.Size {
		return math.MaxInt
	}
	return q.Page * q.Size
}

type FreightPage struct {
	Items []entities.Freight `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
}

func (p FreightPage) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// IsLast reports whether there is no page after this one.
func (p FreightPage) IsLast() bool {
	return p.Page >= p.TotalPages()-1
}
