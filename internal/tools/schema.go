package tools

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"trustbench/pkg/models"
)

// resultSchema is the fixed JSON Schema every ToolResult must satisfy
// before an agent is allowed to trust its findings/stats. This exists
// because the bridge is an external HTTP boundary (spec.md §7's error
// taxonomy treats malformed tool responses as ParseError), and the
// uniform contract is exactly what trustbench_core/tools/bundle/tools_security.py
// normalizes every raw MCP response into.
const resultSchema = `{
  "type": "object",
  "required": ["ok"],
  "properties": {
    "ok": {"type": "boolean"},
    "findings": {"type": "array", "items": {"type": "object"}},
    "stats": {"type": "object"},
    "error": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(resultSchema)

// Validate checks a ToolResult against resultSchema, returning a
// descriptive error on the first violation.
func Validate(result models.ToolResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("tools: marshal result for validation: %w", err)
	}
	doc := gojsonschema.NewBytesLoader(raw)
	res, err := gojsonschema.Validate(schemaLoader, doc)
	if err != nil {
		return fmt.Errorf("tools: schema validation error: %w", err)
	}
	if !res.Valid() {
		return fmt.Errorf("tools: result failed schema validation: %v", res.Errors())
	}
	return nil
}
