package entities

import (
	"encoding/json"
	"time"
)

// Freight é o único registro persistido pela API. A forma JSON é a gravada no cache do
// Redis e segue a mesma convenção camelCase do DTO HTTP.
type Freight struct {
	ID     int64   `json:"id"`
	Status *string `json:"status"`
	// Attributes guarda o JSON original sem schema, igual ao que está na coluna JSONB.
	Attributes json.RawMessage `json:"attributes"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// StatusOrEmpty returns the status, treating an absent one as "".
func (f Freight) StatusOrEmpty() string {
	if f.Status == nil {
		return ""
	}
	return *f.Status
}

// HasAttributes reports whether attributes hold a non-null JSON value.
func (f Freight) HasAttributes() bool {
	return len(f.Attributes) > 0 && string(f.Attributes) != "null"
}
