package server

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// chatRequestSchema constrains the /chat body before any of it is
// trusted: a non-empty messages array of role/content objects plus an
// optional station id.
const chatRequestSchema = `{
	"type": "object",
	"required": ["messages"],
	"properties": {
		"messages": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["role", "content"],
				"properties": {
					"role": {"type": "string", "enum": ["user", "assistant", "system"]},
					"type": {"type": "string"},
					"content": {"type": "string"}
				}
			}
		},
		"station_id": {"type": ["string", "null"]}
	}
}`

var chatSchema = gojsonschema.NewStringLoader(chatRequestSchema)

// validateChatBody checks the raw request body against the schema and
// returns the first violation.
func validateChatBody(body []byte) error {
	result, err := gojsonschema.Validate(chatSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid chat request: %s", errs[0].String())
		}
		return fmt.Errorf("invalid chat request")
	}
	return nil
}
