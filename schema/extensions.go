package schema

// ExtensionDefinitions maps top-level traceport.yml extension keys to the
// schema file describing them under schema/definitions.
var ExtensionDefinitions = map[string]string{
	"logging": "logging.schema.json",
}
