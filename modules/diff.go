package modules

import (
	"context"
	"fmt"

	"tnctl/middleware"

	mapset "github.com/deckarep/golang-set/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// diff holds the fields a create or update call sends, in the order they were added
type diff struct {
	*orderedmap.OrderedMap[string, any]
}

func newDiff() diff {
	return diff{orderedmap.New[string, any]()}
}

func (d diff) Empty() bool {
	return d.Len() == 0
}

func (d diff) String() string {
	b, err := json.Marshal(d.OrderedMap)

	if err != nil {
		return fmt.Sprintf("%v", d.OrderedMap)
	}

	return string(b)
}

// Redacted is String with the values of keys hidden
func (d diff) Redacted(keys ...string) string {
	c := newDiff()

	for pair := d.Oldest(); pair != nil; pair = pair.Next() {
		c.Set(pair.Key, pair.Value)
	}

	for _, k := range keys {
		if _, ok := c.Get(k); ok {
			c.Set(k, "********")
		}
	}

	return c.String()
}

// add sets key when v is set
func add[T any](d diff, key string, v *T) {
	if v != nil {
		d.Set(key, *v)
	}
}

// update sets key when want is set and differs from have
func update[T comparable](d diff, key string, want *T, have T) bool {
	if want == nil || *want == have {
		return false
	}

	d.Set(key, *want)
	return true
}

// updatePtr is update for fields middlewared may report as null
func updatePtr[T comparable](d diff, key string, want *T, have *T) bool {
	if want == nil || (have != nil && *want == *have) {
		return false
	}

	d.Set(key, *want)
	return true
}

// updateSet sets key when want is set and holds other elements than have. Order and
// duplicates don't matter.
func updateSet(d diff, key string, want, have []string) bool {
	if want == nil || sameSet(want, have) {
		return false
	}

	d.Set(key, want)
	return true
}

func sameSet[T comparable](a, b []T) bool {
	return mapset.NewSet(a...).Equal(mapset.NewSet(b...))
}

// queryOne runs a *.query method and decodes the first match. It returns nil when
// nothing matched.
func queryOne[T any](ctx context.Context, c middleware.Client, method string, f middleware.Filters) (*T, error) {
	v, err := c.Call(ctx, method, f)

	if err != nil {
		return nil, err
	}

	var items []T

	if err := middleware.Decode(v, &items); err != nil {
		return nil, fmt.Errorf("can't decode %s result: %w", method, err)
	}

	if len(items) == 0 {
		return nil, nil
	}

	return &items[0], nil
}

// getConfig runs a *.config method and decodes the result
func getConfig[T any](ctx context.Context, c middleware.Client, method string) (*T, error) {
	v, err := c.Call(ctx, method)

	if err != nil {
		return nil, err
	}

	var cfg T

	if err := middleware.Decode(v, &cfg); err != nil {
		return nil, fmt.Errorf("can't decode %s result: %w", method, err)
	}

	return &cfg, nil
}
