package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://markermatic.local/config.schema.json"

//go:embed schema/config.schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	return schema, nil
})

// validateSchema checks normalized JSON against the embedded config schema.
func validateSchema(normalized []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	var payload any
	if err := json.Unmarshal(normalized, &payload); err != nil {
		return wrapJSONDecodeError(string(normalized), err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
