// Package tool exposes record operations as functions a language model can call.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kazz187/notevault/pkg/panicerr"
)

type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
)

type Param struct {
	Name        string
	Type        ParamType // empty means string
	Description string
	Required    bool
}

type Func func(ctx context.Context, args Args) (any, error)

type Tool struct {
	Name        string
	Description string
	Params      []Param
	Func        Func
}

// Parameters returns the JSON schema object describing the tool arguments.
func (t Tool) Parameters() map[string]any {
	properties := make(map[string]any, len(t.Params))
	required := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		typ := p.Type
		if typ == "" {
			typ = TypeString
		}
		prop := map[string]any{"type": string(typ)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Schema returns the tool in OpenAI function calling format.
func (t Tool) Schema() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters(),
		},
	}
}

// Call runs the tool with raw JSON arguments. Panics in the tool body are
// returned as errors.
func (t Tool) Call(ctx context.Context, rawArgs json.RawMessage) (any, error) {
	args := ParseArgs(rawArgs)
	for _, p := range t.Params {
		if p.Required && !args.Has(p.Name) {
			return nil, fmt.Errorf("missing required argument %q", p.Name)
		}
	}
	return panicerr.SafeValue(func() (any, error) {
		return t.Func(ctx, args)
	})
}

// Render turns a tool result into the text handed back to the model.
func Render(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case json.RawMessage:
		return string(v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
