package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}

	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("schema has no properties")
	}
	for _, section := range []string{"viewer", "trace", "encoder", "output", "serve", "watch"} {
		if _, ok := props[section]; !ok {
			t.Errorf("schema missing section %q", section)
		}
	}
	for _, hidden := range []string{"Extensions", "Sources"} {
		if _, ok := props[hidden]; ok {
			t.Errorf("schema should not expose %q", hidden)
		}
	}

	if _, required := schema["required"]; required {
		t.Error("no top-level field should be required")
	}
}

func TestSchemaValidatorIsShared(t *testing.T) {
	a, err := NewSchemaValidator()
	if err != nil {
		t.Fatalf("NewSchemaValidator: %v", err)
	}
	b, _ := NewSchemaValidator()
	if a != b {
		t.Error("expected the compiled validator to be reused")
	}
}
