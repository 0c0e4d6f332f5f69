package sendnotification

import (
	"github.com/xeipuuv/gojsonschema"

	"matchpoint-push/internal/common/errors"
)

const inputSchema = `{
	"type": "object",
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"title":  {"type": "string", "minLength": 1},
		"body":   {"type": "string", "minLength": 1},
		"data":   {"type": "object", "additionalProperties": {"type": "string"}}
	},
	"required": ["userId", "title", "body"]
}`

var schemaLoader = gojsonschema.NewStringLoader(inputSchema)

// validateBody checks the raw request body against the input schema and
// returns a validation error enumerating every offending field at once,
// rather than failing on the first.
func validateBody(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.NewValidationFailedError([]string{"body"})
	}
	if result.Valid() {
		return nil
	}

	var fields []string
	for _, desc := range result.Errors() {
		if property, ok := desc.Details()["property"].(string); ok {
			fields = append(fields, property)
			continue
		}
		fields = append(fields, desc.Field())
	}
	return errors.NewValidationFailedError(fields)
}
