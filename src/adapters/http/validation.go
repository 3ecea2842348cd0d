package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"freightapi/src/domain"
	"freightapi/src/domain/entities"

	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

// O mesmo schema serve para create e update: só o formato é validado, o conteúdo
// de attributes é livre.
const freightPayloadSchema = `{
	"type": "object",
	"properties": {
		"status":     { "type": ["string", "null"] },
		"attributes": { "type": ["object", "null"] }
	}
}`

var freightSchema = mustCompileSchema(freightPayloadSchema)

func mustCompileSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid freight payload schema: %v", err))
	}
	return compiled
}

// readFreightPayload reads the body, checks it against the schema and returns the
// top level keys so callers can tell "absent" from "null".
func readFreightPayload(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, domain.NewValidationError("body", fmt.Sprintf("must not exceed %d bytes", maxBodyBytes))
		}
		return nil, domain.NewValidationError("body", "could not be read")
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, domain.NewValidationError("body", "is required")
	}

	result, err := freightSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, domain.NewValidationError("body", "must be valid JSON")
	}

	if !result.Valid() {
		first := result.Errors()[0]
		field := first.Field()
		if field == "(root)" {
			field = "body"
		}
		return nil, domain.NewValidationError(field, first.Description())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewValidationError("body", "must be a JSON object")
	}

	return payload, nil
}

func decodeCreatePayload(payload map[string]json.RawMessage) (entities.Freight, error) {
	var freight entities.Freight

	status, err := decodeStatus(payload)
	if err != nil {
		return entities.Freight{}, err
	}
	freight.Status = status

	if raw, ok := payload["attributes"]; ok && !isJSONNull(raw) {
		freight.Attributes = raw
	}

	return freight, nil
}

func decodePatchPayload(payload map[string]json.RawMessage) (domain.FreightPatch, error) {
	var patch domain.FreightPatch

	if _, ok := payload["status"]; ok {
		status, err := decodeStatus(payload)
		if err != nil {
			return domain.FreightPatch{}, err
		}
		patch.Status = status
		patch.StatusSet = true
	}

	if raw, ok := payload["attributes"]; ok {
		patch.AttributesSet = true
		if !isJSONNull(raw) {
			patch.Attributes = raw
		}
	}

	return patch, nil
}

func decodeStatus(payload map[string]json.RawMessage) (*string, error) {
	raw, ok := payload["status"]
	if !ok || isJSONNull(raw) {
		return nil, nil
	}

	var status string
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, domain.NewValidationError("status", "must be a string")
	}

	return &status, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
