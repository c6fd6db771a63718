package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

func parseToolList(raw []byte, provider string) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, ir.NewTranslationError(-1, "%s tools are not valid JSON", provider)
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return gjson.Result{}, ir.NewTranslationError(-1, "%s tools must be a JSON array", provider)
	}
	return parsed, nil
}

func toolFrom(name, description gjson.Result, schema gjson.Result) ir.Tool {
	return ir.Tool{Name: name.String(), Description: description.String(), InputSchema: ir.ParseSchema(schema)}
}

// ParseClaudeTools reads a flat array of {name, description, input_schema}.
func ParseClaudeTools(raw []byte) ([]ir.Tool, error) {
	parsed, err := parseToolList(raw, "claude")
	if err != nil {
		return nil, err
	}
	var tools []ir.Tool
	for _, t := range parsed.Array() {
		tools = append(tools, toolFrom(t.Get("name"), t.Get("description"), t.Get("input_schema")))
	}
	return tools, ir.ValidateTools(tools)
}

// ParseOpenAITools unwraps each {type: "function", function: {...}} entry.
func ParseOpenAITools(raw []byte) ([]ir.Tool, error) {
	parsed, err := parseToolList(raw, "openai")
	if err != nil {
		return nil, err
	}
	var tools []ir.Tool
	for i, t := range parsed.Array() {
		if typ := t.Get("type").String(); typ != "function" {
			return nil, ir.NewTranslationError(i, "openai tool at index %d has type %q, want \"function\"", i, typ)
		}
		fn := t.Get("function")
		tools = append(tools, toolFrom(fn.Get("name"), fn.Get("description"), fn.Get("parameters")))
	}
	return tools, ir.ValidateTools(tools)
}

// ParseGeminiTools flattens the declarations of every wrapper object.
func ParseGeminiTools(raw []byte) ([]ir.Tool, error) {
	parsed, err := parseToolList(raw, "gemini")
	if err != nil {
		return nil, err
	}
	var tools []ir.Tool
	for _, wrapper := range parsed.Array() {
		for _, decl := range wrapper.Get("functionDeclarations").Array() {
			tools = append(tools, toolFrom(decl.Get("name"), decl.Get("description"), decl.Get("parameters")))
		}
	}
	return tools, ir.ValidateTools(tools)
}
