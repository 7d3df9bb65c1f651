package intent

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaName identifies the structured output format sent to the model.
const SchemaName = "omi_intent"

const schemaJSON = `{
  "type": "object",
  "properties": {
    "action": {
      "type": "string",
      "enum": ["turn_on", "turn_off", "none"]
    },
    "device": {
      "type": "string",
      "description": "Target device name."
    },
    "assistant_message": {
      "type": "string",
      "description": "What the assistant says back to the user."
    },
    "follow_up": {
      "type": "string",
      "description": "Optional follow-up, may be empty."
    }
  },
  "required": ["action", "device", "assistant_message", "follow_up"],
  "additionalProperties": false
}`

var compiledSchema = jsonschema.MustCompileString(SchemaName+".json", schemaJSON)

// Schema is a named JSON schema document for structured model output.
type Schema struct {
	Name string
	Doc  map[string]any
}

// OutputSchema returns the schema constraining the model's reply. Callers get
// a fresh copy, so mutating it does not affect validation.
func OutputSchema() Schema {
	var doc map[string]any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		panic("intent: invalid schema document: " + err.Error())
	}
	return Schema{Name: SchemaName, Doc: doc}
}

// validate checks a decoded JSON value against the intent schema.
func validate(v any) error {
	return compiledSchema.Validate(v)
}
