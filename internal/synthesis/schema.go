package synthesis

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// InsightCount is the fixed size of a baseline report.
const InsightCount = 3

// 同一份 schema 既交给模型做结构化输出约束，也用于本地校验。
func insightCardSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":    map[string]any{"type": "string", "description": "Identified Pattern, Psychological Loop or Hidden Strength"},
			"title":   map[string]any{"type": "string", "minLength": 1},
			"content": map[string]any{"type": "string", "minLength": 1},
			"icon":    map[string]any{"type": "string", "description": "a single emoji"},
		},
		"required":             []any{"type", "title", "content", "icon"},
		"additionalProperties": false,
	}
}

// ReportSchema describes exactly three insight cards.
func ReportSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": InsightCount,
		"maxItems": InsightCount,
		"items":    insightCardSchema(),
	}
}

// ChallengeSchema describes the {focusSetup, mission} object.
func ChallengeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"focusSetup": map[string]any{"type": "string", "minLength": 1},
			"mission":    map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"focusSetup", "mission"},
		"additionalProperties": false,
	}
}

var (
	compileOnce       sync.Once
	reportCompiled    *jsonschema.Schema
	challengeCompiled *jsonschema.Schema
	compileErr        error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		reportCompiled, compileErr = compileSchema("report.json", ReportSchema())
		if compileErr != nil {
			return
		}
		challengeCompiled, compileErr = compileSchema("challenge.json", ChallengeSchema())
	})
	return reportCompiled, challengeCompiled, compileErr
}

func compileSchema(name string, data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

func schemaString(data map[string]any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(raw)
}
