package domain

import "time"

const (
	TableFreight = "freight"

	FreightReferencePrefix = "freight-"
)

// Operações normalizadas a partir do CDC.
const (
	OperationInsert = "INSERT"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

const (
	EventTypeFreightCreated = "freight.created"
	EventTypeFreightUpdated = "freight.updated"
	EventTypeFreightDeleted = "freight.deleted"
)

// PropertyPair holds the before/after value of a changed field.
type PropertyPair struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

type DomainEventData struct {
	Type       string                  `json:"type"`
	FreightID  int64                   `json:"freight_id"`
	Reference  string                  `json:"reference"`
	Properties map[string]PropertyPair `json:"properties"`
}

// DomainEvent é o payload publicado no tópico de eventos de domínio.
type DomainEvent struct {
	IdempotencyKey string          `json:"idempotency_key"`
	EventTimestamp time.Time       `json:"event_timestamp"`
	Data           DomainEventData `json:"data"`
}
