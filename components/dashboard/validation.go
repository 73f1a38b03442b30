package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidConfig marks configuration payloads rejected by a widget schema.
var ErrInvalidConfig = errors.New("dashboard: invalid widget configuration")

// ConfigValidator validates widget configuration payloads against their schema.
type ConfigValidator interface {
	Validate(meta WidgetMeta, props map[string]any) error
}

// JSONSchemaValidator compiles widget schemas and validates property bags.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[WidgetKey]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[WidgetKey]*jsonschema.Schema),
	}
}

// Validate ensures the provided properties satisfy the widget schema.
func (v *JSONSchemaValidator) Validate(meta WidgetMeta, props map[string]any) error {
	if len(meta.Schema) == 0 {
		return nil
	}
	schema, err := v.schemaFor(meta)
	if err != nil {
		return err
	}
	payload, err := normalizePayload(props)
	if err != nil {
		return fmt.Errorf("dashboard: normalize config for %s: %w", meta.Key, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, meta.Key, err)
	}
	return nil
}

func (v *JSONSchemaValidator) schemaFor(meta WidgetMeta) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[meta.Key]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(meta.Schema)
	if err != nil {
		return nil, fmt.Errorf("dashboard: marshal schema %s: %w", meta.Key, err)
	}
	compiler := jsonschema.NewCompiler()
	name := string(meta.Key) + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", meta.Key, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", meta.Key, err)
	}
	v.mu.Lock()
	v.compiled[meta.Key] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// normalizePayload round-trips props through JSON so Go-typed values
// ([]string, int) validate the same way stored documents do.
func normalizePayload(props map[string]any) (any, error) {
	if props == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

type noopConfigValidator struct{}

func (noopConfigValidator) Validate(WidgetMeta, map[string]any) error { return nil }
