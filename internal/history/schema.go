package history

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fileSchema describes the on-disk history document. Used by the validate
// command to check a history file without loading it into a store.
const fileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "records"],
  "properties": {
    "version": {"type": "string"},
    "created_at": {"type": "string"},
    "total_records": {"type": "integer", "minimum": 0},
    "max_records": {"type": "integer", "minimum": 1},
    "records": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "original_text", "translated_text", "timestamp"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "original_text": {"type": "string"},
          "translated_text": {"type": "string"},
          "source_language": {"type": "string"},
          "target_language": {"type": "string"},
          "timestamp": {"type": "string"},
          "metadata": {"type": "object"}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("history.schema.json", fileSchema)

// ValidateFile checks that the file at path is a well-formed history
// document.
func ValidateFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read history file: %w", err)
	}
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("parse history file: %w", err)
	}
	if err := compiledSchema.Validate(document); err != nil {
		return fmt.Errorf("history file invalid: %w", err)
	}
	return nil
}
