package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/traceport/config"
	"github.com/grovetools/traceport/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	// Define the output directory and ensure it exists.
	outputDir := "schema/definitions"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	outputPath := filepath.Join(outputDir, "base.schema.json")
	if err := os.WriteFile(outputPath, schemaBytes, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated base schema at %s", outputPath)

	loggingBytes, err := loggingSchema()
	if err != nil {
		log.Fatalf("Error generating logging schema: %v", err)
	}
	loggingPath := filepath.Join(outputDir, "logging.schema.json")
	if err := os.WriteFile(loggingPath, loggingBytes, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated logging schema at %s", loggingPath)
}

// loggingSchema describes the 'logging' extension section.
func loggingSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&logging.Config{})
	schema.Title = "Traceport Logging Configuration"
	schema.Description = "Schema for the 'logging' extension in traceport.yml."
	// Every field is optional.
	schema.Required = nil

	return json.MarshalIndent(schema, "", "  ")
}
