package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/traceport/schema"
)

func main() {
	log.Println("Starting schema composition...")

	definitionsDir := "schema/definitions"
	distDir := "schema/dist"

	// Ensure dist directory exists
	if err := os.MkdirAll(distDir, 0755); err != nil {
		log.Fatalf("Failed to create dist directory: %v", err)
	}

	// 1. Schema with relative $refs to the extension definitions, for IDEs.
	resolvableSchema, err := createResolvableSchema(filepath.Join(definitionsDir, "base.schema.json"))
	if err != nil {
		log.Fatalf("Failed to create resolvable schema: %v", err)
	}
	resolvablePath := filepath.Join(distDir, "traceport.schema.json")
	if err := writeJSONFile(resolvablePath, resolvableSchema); err != nil {
		log.Fatalf("Failed to write resolvable schema: %v", err)
	}
	log.Printf("Generated resolvable schema at %s", resolvablePath)

	// 2. Schema with the extension definitions inlined.
	bundledSchema, err := createBundledSchema(resolvableSchema, definitionsDir)
	if err != nil {
		log.Fatalf("Failed to create bundled schema: %v", err)
	}
	bundledPath := filepath.Join(distDir, "traceport.embedded.schema.json")
	if err := writeJSONFile(bundledPath, bundledSchema); err != nil {
		log.Fatalf("Failed to write bundled schema: %v", err)
	}
	log.Printf("Generated bundled schema at %s", bundledPath)

	log.Println("Schema composition complete.")
}

func createResolvableSchema(basePath string) (map[string]interface{}, error) {
	baseBytes, err := os.ReadFile(basePath)
	if err != nil {
		return nil, fmt.Errorf("could not read base schema: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(baseBytes, &doc); err != nil {
		return nil, fmt.Errorf("could not parse base schema: %w", err)
	}

	// Ensure properties map exists
	if _, ok := doc["properties"]; !ok {
		doc["properties"] = make(map[string]interface{})
	}
	properties := doc["properties"].(map[string]interface{})

	for key, file := range schema.ExtensionDefinitions {
		properties[key] = map[string]interface{}{
			"$ref": "../definitions/" + file,
		}
	}

	// Unknown top-level keys remain valid extensions.
	doc["additionalProperties"] = true
	doc["title"] = "Traceport Configuration Schema"
	doc["description"] = "Schema for traceport.yml, including extension sections."

	return doc, nil
}

func createBundledSchema(resolvableSchema map[string]interface{}, definitionsDir string) (map[string]interface{}, error) {
	bundledSchema := deepCopyMap(resolvableSchema)
	properties := bundledSchema["properties"].(map[string]interface{})

	for key, file := range schema.ExtensionDefinitions {
		path := filepath.Join(definitionsDir, file)
		log.Printf("Inlining schema for '%s' from %s", key, path)

		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema for %s: %w", key, err)
		}
		var subSchema map[string]interface{}
		if err := json.Unmarshal(body, &subSchema); err != nil {
			return nil, fmt.Errorf("failed to parse schema for %s: %w", key, err)
		}
		// Inlined definitions drop their own $schema keyword.
		delete(subSchema, "$schema")
		properties[key] = subSchema
	}

	return bundledSchema, nil
}

func writeJSONFile(path string, data map[string]interface{}) error {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0644)
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	// Simple deep copy using JSON marshaling
	bytes, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var copy map[string]interface{}
	if err := json.Unmarshal(bytes, &copy); err != nil {
		return m
	}
	return copy
}
