// Package schema holds the structured-output JSON Schema documents the
// pipeline hands to the remote model for each stage, plus the response
// parsers (C7) that pull text and JSON back out of the model's envelope.
package schema

import (
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed planner_schema.json
var plannerSchemaJSON string

//go:embed web_research_schema.json
var webResearchSchemaJSON string

//go:embed file_research_schema.json
var fileResearchSchemaJSON string

//go:embed validator_schema.json
var validatorSchemaJSON string

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

// Kind names one of the four structured-output schemas the pipeline uses.
type Kind string

const (
	KindPlanner      Kind = "planner"
	KindWebResearch  Kind = "web_research"
	KindFileResearch Kind = "file_research"
	KindValidator    Kind = "validator"
)

func (k Kind) document() (string, string) {
	switch k {
	case KindPlanner:
		return "planner_schema.json", plannerSchemaJSON
	case KindWebResearch:
		return "web_research_schema.json", webResearchSchemaJSON
	case KindFileResearch:
		return "file_research_schema.json", fileResearchSchemaJSON
	case KindValidator:
		return "validator_schema.json", validatorSchemaJSON
	default:
		return "", ""
	}
}

func compileAll() (map[Kind]*jsonschema.Schema, error) {
	out := make(map[Kind]*jsonschema.Schema, 4)
	for _, k := range []Kind{KindPlanner, KindWebResearch, KindFileResearch, KindValidator} {
		name, doc := k.document()
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[k] = schema
	}
	return out, nil
}

// Compiled returns the compiled JSON Schema for kind, compiling the full
// set once and caching the result.
func Compiled(k Kind) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = compileAll()
	})
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[k]
	if !ok {
		return nil, fmt.Errorf("unknown schema kind %q", k)
	}
	return s, nil
}

// Document returns the raw JSON Schema text for kind, e.g. for embedding in
// a `responses` request body's `text.format`.
func Document(k Kind) (string, error) {
	_, doc := k.document()
	if doc == "" {
		return "", fmt.Errorf("unknown schema kind %q", k)
	}
	return doc, nil
}
