package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "trace": {
      "type": "object",
      "properties": {"core_count": {"type": "integer", "minimum": 1}},
      "additionalProperties": false
    }
  }
}`

func TestValidatorAcceptsValidDocument(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	doc := map[string]interface{}{"trace": map[string]interface{}{"core_count": 2}}
	assert.NoError(t, v.Validate(doc))
}

func TestValidatorReportsLocations(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	err = v.Validate(map[string]interface{}{"trace": map[string]interface{}{"core_count": 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/trace/core_count")

	err = v.Validate(map[string]interface{}{"trace": map[string]interface{}{"cores": 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cores")
}

func TestNewValidatorRejectsBrokenSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}
