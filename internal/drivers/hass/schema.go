package hass

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/registry-v1.json
var registrySchemaJSON string

const registrySchemaURL = "registry-v1.json"

var (
	registrySchema     *jsonschema.Schema
	registrySchemaErr  error
	registrySchemaOnce sync.Once
)

// compiledRegistrySchema compiles the embedded schema on first use.
func compiledRegistrySchema() (*jsonschema.Schema, error) {
	registrySchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(registrySchemaURL, strings.NewReader(registrySchemaJSON)); err != nil {
			registrySchemaErr = fmt.Errorf("adding registry schema: %w", err)
			return
		}
		registrySchema, registrySchemaErr = compiler.Compile(registrySchemaURL)
	})
	return registrySchema, registrySchemaErr
}

// validateRegistryDocument checks a JSON registry document against the
// embedded schema.
func validateRegistryDocument(data []byte) error {
	schema, err := compiledRegistrySchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return configProblem("registry is not valid JSON: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return configProblem("registry does not match schema: %v", err)
	}
	return nil
}
