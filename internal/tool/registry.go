package tool

import (
	"fmt"
)

// Registry is an immutable, ordered set of tools.
type Registry struct {
	tools  []Tool
	byName map[string]int
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" || t.Func == nil {
			return nil, fmt.Errorf("tool %q: name and func are required", t.Name)
		}
		if _, ok := r.byName[t.Name]; ok {
			return nil, fmt.Errorf("tool %q registered twice", t.Name)
		}
		r.byName[t.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

func (r *Registry) Tools() []Tool {
	return append([]Tool(nil), r.tools...)
}

func (r *Registry) Schemas() []map[string]any {
	schemas := make([]map[string]any, len(r.tools))
	for i, t := range r.tools {
		schemas[i] = t.Schema()
	}
	return schemas
}
