package mistral

import (
	"encoding/json"
	"fmt"
)

// schemaName is the wrapper name sent alongside a structured-output schema.
// The API requires a name but does not interpret it.
const schemaName = "kestra_schema"

// BuildResponseFormat parses a JSON schema string and wraps it in the
// structured-output envelope the API expects:
//
//	{type: "json_schema", json_schema: {schema, name, strict}}
//
// The schema must be valid JSON; it is embedded verbatim under "schema".
func BuildResponseFormat(schema string) (*ResponseFormat, error) {
	var node json.RawMessage
	if err := json.Unmarshal([]byte(schema), &node); err != nil {
		return nil, fmt.Errorf("invalid JSON response schema: %w", err)
	}

	return &ResponseFormat{
		Type: "json_schema",
		JSONSchema: JSONSchema{
			Schema: node,
			Name:   schemaName,
			Strict: true,
		},
	}, nil
}
