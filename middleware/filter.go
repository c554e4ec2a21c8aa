package middleware

import (
	"github.com/mitchellh/mapstructure"
)

// Query filters as middlewared expects them: [[field, op, value], ...]
type Filters [][]any

// Filter starts a filter list with a single condition
func Filter(field, op string, value any) Filters {
	return Filters{{field, op, value}}
}

// Eq is Filter(field, "=", value)
func Eq(field string, value any) Filters {
	return Filter(field, "=", value)
}

// And adds another condition. All conditions must match.
func (f Filters) And(field, op string, value any) Filters {
	return append(f, []any{field, op, value})
}

// Decode copies a raw middleware result (maps, slices, float64s) into out,
// matching on json tags.
func Decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})

	if err != nil {
		return err
	}

	return dec.Decode(in)
}
