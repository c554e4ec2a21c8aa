package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseParams turns key=value arguments into module parameters. Values are read as YAML,
// so "enabled=true" is a bool and "groups=[wheel, staff]" a list. A bare key is true.
func parseParams(args []string) (map[string]any, error) {
	params := map[string]any{}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")

		if key == "" {
			return nil, fmt.Errorf("bad parameter %q, want key=value", arg)
		}

		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("parameter %q given more than once", key)
		}

		if !ok {
			params[key] = true
			continue
		}

		if value == "" {
			params[key] = ""
			continue
		}

		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			// Not valid YAML, so take it as a plain string
			v = value
		}

		params[key] = v
	}

	return params, nil
}

// parseCallArgs reads each argument as one JSON value
func parseCallArgs(args []string) ([]any, error) {
	out := make([]any, 0, len(args))

	for i, arg := range args {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			return nil, fmt.Errorf("argument %d is not valid JSON: %w", i+1, err)
		}
		out = append(out, v)
	}

	return out, nil
}
