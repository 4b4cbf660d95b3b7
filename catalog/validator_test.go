package catalog_test

import (
	"encoding/json"
	"testing"

	"github.com/hookline/hookline/catalog"
)

func TestValidatorNilSchema(t *testing.T) {
	v := catalog.NewValidator()

	if err := v.Validate(nil, json.RawMessage(`{"anything":true}`)); err != nil {
		t.Errorf("nil schema should skip validation, got %v", err)
	}
}

func TestValidatorAcceptsValidPayload(t *testing.T) {
	v := catalog.NewValidator()
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"id": {"type": "integer"}},
		"required": ["id"]
	}`)

	if err := v.Validate(schema, json.RawMessage(`{"id":1}`)); err != nil {
		t.Errorf("expected valid payload, got %v", err)
	}
}

func TestValidatorRejectsInvalidPayload(t *testing.T) {
	v := catalog.NewValidator()
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"id": {"type": "integer"}},
		"required": ["id"]
	}`)

	if err := v.Validate(schema, json.RawMessage(`{"id":"nope"}`)); err == nil {
		t.Error("expected validation error for wrong type")
	}
	if err := v.Validate(schema, json.RawMessage(`{}`)); err == nil {
		t.Error("expected validation error for missing required field")
	}
}

func TestValidatorCachesCompiledSchemas(t *testing.T) {
	v := catalog.NewValidator()
	schema := json.RawMessage(`{"type":"object"}`)

	for range 3 {
		if err := v.Validate(schema, json.RawMessage(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
}
