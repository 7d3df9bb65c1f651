package intent

import (
	"strings"
	"testing"
)

func TestPromptContainsInstructions(t *testing.T) {
	system := BuildPrompt("")

	if !strings.Contains(system, "smart-home assistant") {
		t.Error("system prompt does not contain role instruction")
	}
	for _, action := range []string{"turn_on", "turn_off", "none"} {
		if !strings.Contains(system, action) {
			t.Errorf("system prompt does not mention action %q", action)
		}
	}
	if strings.Contains(system, "[Household]") {
		t.Error("household section present without a default device")
	}
}

func TestPromptInjectsDefaultDevice(t *testing.T) {
	system := BuildPrompt("Living Room")

	if !strings.Contains(system, "[Household]") {
		t.Error("system prompt does not contain household section header")
	}
	if !strings.Contains(system, `"Living Room"`) {
		t.Error("system prompt does not name the default device")
	}
}

func TestOutputSchemaIsStrict(t *testing.T) {
	s := OutputSchema()
	if s.Name != SchemaName {
		t.Errorf("Name = %q, want %q", s.Name, SchemaName)
	}
	if s.Doc["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", s.Doc["additionalProperties"])
	}
	required, ok := s.Doc["required"].([]any)
	if !ok || len(required) != 4 {
		t.Fatalf("required = %v, want 4 fields", s.Doc["required"])
	}

	// Mutating the returned copy must not leak into later calls.
	delete(s.Doc, "required")
	if _, ok := OutputSchema().Doc["required"]; !ok {
		t.Error("OutputSchema returned shared state")
	}
}
