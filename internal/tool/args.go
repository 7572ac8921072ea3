package tool

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Args is the decoded argument object of one tool call. Accessors are
// lenient about JSON types since models often quote numbers.
type Args struct {
	raw gjson.Result
}

func ParseArgs(raw json.RawMessage) Args {
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		r = gjson.Parse("{}")
	}
	return Args{raw: r}
}

func (a Args) get(name string) gjson.Result {
	return a.raw.Get(gjson.Escape(name))
}

// Has reports whether name is present and not null.
func (a Args) Has(name string) bool {
	v := a.get(name)
	return v.Exists() && v.Type != gjson.Null
}

// String returns the argument as text, or "" when absent.
func (a Args) String(name string) string {
	v := a.get(name)
	if v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// Int decodes an integer argument. def is returned when the argument is absent.
func (a Args) Int(name string, def int) (int, error) {
	v := a.get(name)
	switch v.Type {
	case gjson.Null:
		return def, nil
	case gjson.Number:
		if v.Num != float64(int(v.Num)) {
			return 0, fmt.Errorf("argument %q must be an integer, got %s", name, v.Raw)
		}
		return int(v.Num), nil
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer, got %q", name, v.Str)
		}
		return n, nil
	}
	return 0, fmt.Errorf("argument %q must be an integer, got %s", name, v.Raw)
}

// Bool decodes a boolean argument, accepting "true"/"false" strings.
func (a Args) Bool(name string, def bool) (bool, error) {
	v := a.get(name)
	switch v.Type {
	case gjson.Null:
		return def, nil
	case gjson.True, gjson.False:
		return v.Bool(), nil
	case gjson.String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.Str))
		if err != nil {
			return false, fmt.Errorf("argument %q must be a boolean, got %q", name, v.Str)
		}
		return b, nil
	}
	return false, fmt.Errorf("argument %q must be a boolean, got %s", name, v.Raw)
}
