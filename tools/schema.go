package tools

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// ToolDefinition describes one structured-output contract.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
}

// GenerateSchema reflects T into an object schema. Fields without omitempty are required.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// Parameters renders the schema as a plain JSON Schema object, the shape
// function-calling APIs other than Anthropic's expect.
func (d ToolDefinition) Parameters() map[string]any {
	required := d.InputSchema.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           d.InputSchema.Properties,
		"required":             required,
		"additionalProperties": false,
	}
}
