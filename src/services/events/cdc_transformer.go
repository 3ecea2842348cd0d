package events

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"freightapi/src/domain"
	"freightapi/src/infra/debezium"

	"github.com/google/uuid"
)

const attributePropertyPrefix = "attributes."

type CDCTransformer struct {
	logger *slog.Logger
}

func NewCDCTransformer(logger *slog.Logger) *CDCTransformer {
	return &CDCTransformer{
		logger: logger,
	}
}

// TransformCDCEvent converts a freight row change into a domain event. Changes from
// other tables are ignored (nil, nil).
func (t *CDCTransformer) TransformCDCEvent(ctx context.Context, cdcEvent *debezium.CDCEvent) ([]DomainEventWithMetadata, error) {
	tableName := cdcEvent.Source.Table

	t.logger.Debug("Processing CDC event",
		"table", tableName,
		"operation", cdcEvent.Operation,
		"ts_ms", cdcEvent.TsMs)

	if tableName != domain.TableFreight {
		t.logger.Debug("Ignoring CDC event from unknown table", "table", tableName)
		return nil, nil
	}

	event, err := t.transformFreightEvent(cdcEvent)
	if err != nil {
		return nil, err
	}

	// UPDATE que não mudou nada visível (ex.: só updated_at) não vira evento.
	if event == nil {
		return nil, nil
	}

	return []DomainEventWithMetadata{*event}, nil
}

func (t *CDCTransformer) transformFreightEvent(cdcEvent *debezium.CDCEvent) (*DomainEventWithMetadata, error) {
	operation := debezium.MapCDCOperation(cdcEvent.Operation)
	eventType := mapToEventType(operation)
	if eventType == "" {
		return nil, fmt.Errorf("CDCTransformer.transformFreightEvent - unsupported operation %q", cdcEvent.Operation)
	}

	freightID, err := extractFreightID(cdcEvent.Row())
	if err != nil {
		return nil, fmt.Errorf("CDCTransformer.transformFreightEvent - %w", err)
	}

	oldProperties, err := flattenFreightRow(cdcEvent.Before)
	if err != nil {
		return nil, fmt.Errorf("CDCTransformer.transformFreightEvent - before image: %w", err)
	}
	newProperties, err := flattenFreightRow(cdcEvent.After)
	if err != nil {
		return nil, fmt.Errorf("CDCTransformer.transformFreightEvent - after image: %w", err)
	}

	properties := make(map[string]domain.PropertyPair)

	switch operation {
	case domain.OperationInsert:
		for field, value := range newProperties {
			properties[field] = domain.PropertyPair{Old: nil, New: value}
		}

	case domain.OperationUpdate:
		if cdcEvent.Before == nil {
			t.logger.Warn("UPDATE event missing 'before' data, treating as insert-like", "freight_id", freightID)
			for field, value := range newProperties {
				properties[field] = domain.PropertyPair{Old: nil, New: value}
			}
			break
		}

		for _, field := range unionKeys(oldProperties, newProperties) {
			oldVal := oldProperties[field]
			newVal := newProperties[field]
			if !compareValues(oldVal, newVal) {
				properties[field] = domain.PropertyPair{Old: oldVal, New: newVal}
			}
		}

		if len(properties) == 0 {
			t.logger.Debug("Skipping UPDATE without visible changes", "freight_id", freightID)
			return nil, nil
		}

	case domain.OperationDelete:
		for field, value := range oldProperties {
			properties[field] = domain.PropertyPair{Old: value, New: nil}
		}
	}

	eventTimestamp := time.UnixMilli(cdcEvent.TsMs).UTC()
	reference := fmt.Sprintf("%s%d", domain.FreightReferencePrefix, freightID)

	event := &DomainEventWithMetadata{
		DomainEvent: domain.DomainEvent{
			IdempotencyKey: generateIdempotencyKey(reference, operation, cdcEvent.Source.LSN, eventTimestamp),
			EventTimestamp: eventTimestamp,
			Data: domain.DomainEventData{
				Type:       domain.TableFreight,
				FreightID:  freightID,
				Reference:  reference,
				Properties: properties,
			},
		},
		EventID:   uuid.New().String(),
		EventType: eventType,
	}

	t.logger.Debug("Transformed freight CDC event",
		"freight_id", freightID,
		"event_type", eventType,
		"properties_changed", len(properties))

	return event, nil
}

func mapToEventType(operation string) string {
	switch operation {
	case domain.OperationInsert:
		return domain.EventTypeFreightCreated
	case domain.OperationUpdate:
		return domain.EventTypeFreightUpdated
	case domain.OperationDelete:
		return domain.EventTypeFreightDeleted
	}
	return ""
}

// extractFreightID aceita o id como número JSON ou string, dependendo do conversor.
func extractFreightID(row map[string]interface{}) (int64, error) {
	switch id := row["id"].(type) {
	case float64:
		return int64(id), nil
	case json.Number:
		return id.Int64()
	case string:
		return strconv.ParseInt(id, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing freight id")
	default:
		return 0, fmt.Errorf("unexpected freight id type %T", id)
	}
}

// flattenFreightRow turns a row image into event properties: "status" plus one
// "attributes.<key>" entry per top level attribute. Timestamps are not properties.
func flattenFreightRow(row map[string]interface{}) (map[string]interface{}, error) {
	if row == nil {
		return nil, nil
	}

	properties := map[string]interface{}{
		"status": row["status"],
	}

	attributes, err := decodeAttributes(row["attributes"])
	if err != nil {
		return nil, err
	}
	for key, value := range attributes {
		properties[attributePropertyPrefix+key] = value
	}

	return properties, nil
}

// Debezium entrega jsonb como string; alguns conversores já mandam o objeto.
func decodeAttributes(raw interface{}) (map[string]interface{}, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return value, nil
	case string:
		if strings.TrimSpace(value) == "" || value == "null" {
			return nil, nil
		}
		var attributes map[string]interface{}
		if err := json.Unmarshal([]byte(value), &attributes); err != nil {
			return nil, fmt.Errorf("attributes are not a JSON object: %w", err)
		}
		return attributes, nil
	default:
		return nil, fmt.Errorf("unexpected attributes type %T", raw)
	}
}

func unionKeys(a, b map[string]interface{}) []string {
	seen := make(map[string]bool, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, m := range []map[string]interface{}{a, b} {
		for key := range m {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func compareValues(a, b interface{}) bool {
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return string(aJSON) == string(bJSON)
}

// The LSN makes the key stable across redeliveries of the same change.
func generateIdempotencyKey(reference, operation string, lsn int64, timestamp time.Time) string {
	baseKey := fmt.Sprintf("%s:%s:%d-%d", reference, operation, lsn, timestamp.UnixMilli())
	hash := md5.Sum([]byte(baseKey))
	return hex.EncodeToString(hash[:])
}
