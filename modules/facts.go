package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tnctl/middleware"
	"tnctl/types"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type FactsParams struct{}

var factsModule = define("facts", "Gather facts about the NAS", nil, nil, runFacts)

// Features probed with system.feature_enabled. Releases that don't know one reject it
// with "Invalid choice".
var factFeatures = []string{"DEDUP", "FIBRECHANNEL", "JAILS", "VM"}

func runFacts(ctx context.Context, env *Env, _ *FactsParams) (*types.Result, error) {
	res := types.NewResult()

	if err := gatherFacts(ctx, env.MW, res); err != nil {
		res.Skipped = true
		res.Msg = fmt.Sprintf("Error looking up facts: %v", err)
	}

	return res, nil
}

func gatherFacts(ctx context.Context, mw middleware.Client, res *types.Result) error {
	for _, f := range []struct{ key, method string }{
		{"truenas_boot_id", "system.boot_id"},
		{"truenas_host_id", "system.host_id"},
		{"truenas_product_type", "system.product_type"},
	} {
		s, err := mw.CallString(ctx, f.method)

		if err != nil {
			return err
		}

		res.Set(f.key, s)
	}

	productType, _ := res.Data.Get("truenas_product_type")

	// CORE doesn't have these
	for _, f := range []struct{ key, method string }{
		{"truenas_product_name", "system.product_name"},
		{"truenas_environment", "system.environment"},
	} {
		s, err := mw.CallString(ctx, f.method)

		var notFound *middleware.MethodNotFoundError

		switch {
		case errors.As(err, &notFound):
			if productType == middleware.ProductCore {
				res.Warn("No method " + f.method + ".")
			}
		case err != nil:
			res.Warn(fmt.Sprintf("Error looking up %s: %v", strings.TrimPrefix(f.method, "system."), err))
			return err
		default:
			res.Set(f.key, s)
		}
	}

	st, err := mw.CallString(ctx, "system.state")

	if err != nil {
		return err
	}

	res.Set("truenas_state", st)

	info, err := mw.Call(ctx, "system.info")

	if err != nil {
		return err
	}

	res.Set("truenas_system_info", info)

	bt, err := mw.Call(ctx, "system.build_time")

	if err != nil {
		return err
	}

	res.Set("truenas_build_time", buildTime(bt, res))

	features := orderedmap.New[string, any]()

	for _, feat := range factFeatures {
		v, err := mw.Call(ctx, "system.feature_enabled", feat)

		if err != nil {
			if !strings.Contains(err.Error(), "Invalid choice") {
				res.Warn(fmt.Sprintf("Error looking up feature %s: %v", feat, err))
			}
			continue
		}

		features.Set(feat, v)
	}

	res.Set("truenas_features", features)

	return nil
}

// system.build_time comes back as {"$date": <ms since epoch>} over the wire
func buildTime(v any, res *types.Result) any {
	switch t := v.(type) {
	case map[string]any:
		if ms, ok := t["$date"].(float64); ok {
			return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339)
		}
	case string:
		return t
	}

	res.Warn(fmt.Sprintf("Unexpected type of build_time: %T.", v))
	return v
}
