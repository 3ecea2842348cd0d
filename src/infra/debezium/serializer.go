package debezium

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CDCSerializer handles parsing and validation of CDC messages
type CDCSerializer struct {
	IncludeTables []string
	SkipSnapshots bool
}

// IsTableMonitored checks if table should be processed
func (s *CDCSerializer) IsTableMonitored(tableName string) bool {
	for _, included := range s.IncludeTables {
		if tableName == included {
			return true
		}
		// "freight*" também pega tabelas particionadas (freight_p2025...)
		if strings.HasSuffix(included, "*") {
			prefix := strings.TrimSuffix(included, "*")
			if strings.HasPrefix(tableName, prefix) {
				return true
			}
		}
	}
	return false
}

// ParseCDCEvent deserializes Kafka message to CDC event. Both the bare event and the
// {"schema":..., "payload":...} envelope are accepted. A nil event with nil error
// means a tombstone.
func (s *CDCSerializer) ParseCDCEvent(messageValue []byte) (*CDCEvent, error) {
	if len(messageValue) == 0 {
		return nil, nil
	}

	var wrapped envelope
	if err := json.Unmarshal(messageValue, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CDC event: %w", err)
	}

	cdcEvent := wrapped.Payload
	if cdcEvent == nil {
		cdcEvent = &CDCEvent{}
		if err := json.Unmarshal(messageValue, cdcEvent); err != nil {
			return nil, fmt.Errorf("failed to unmarshal CDC event: %w", err)
		}
	}

	if err := s.validateCDCEvent(cdcEvent); err != nil {
		return nil, fmt.Errorf("invalid CDC event: %w", err)
	}

	return cdcEvent, nil
}

// validateCDCEvent performs basic validation on CDC event
func (s *CDCSerializer) validateCDCEvent(event *CDCEvent) error {
	if event.Source.Table == "" {
		return fmt.Errorf("missing source table")
	}

	switch event.Operation {
	case "c", "u", "r":
		if event.After == nil {
			return fmt.Errorf("missing 'after' data for operation %s", event.Operation)
		}
	case "d":
		if event.Before == nil {
			return fmt.Errorf("missing 'before' data for delete operation")
		}
	case "":
		return fmt.Errorf("missing operation")
	default:
		return fmt.Errorf("invalid operation: %s", event.Operation)
	}

	return nil
}

// ShouldProcessEvent checks if CDC event should be processed based on filtering rules
func (s *CDCSerializer) ShouldProcessEvent(event *CDCEvent) bool {
	if !s.IsTableMonitored(event.Source.Table) {
		return false
	}

	if s.SkipSnapshots && event.Operation == "r" {
		return false
	}

	return true
}

// MapCDCOperation converts CDC operation code to domain operation
func MapCDCOperation(cdcOp string) string {
	switch cdcOp {
	case "c":
		return "INSERT"
	case "u":
		return "UPDATE"
	case "d":
		return "DELETE"
	case "r":
		return "INSERT" // Read (snapshot) treated as insert
	default:
		return "UNKNOWN"
	}
}
