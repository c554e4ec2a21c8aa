package modules

import (
	"context"
	"fmt"
	"strings"

	"tnctl/types"
)

type SmartParams struct {
	Interval       *int    `yaml:"interval" validate:"omitempty,min=1"`
	PowerMode      *string `yaml:"power_mode" validate:"omitempty,oneof=never sleep standby idle"`
	TempDifference *int    `yaml:"temp_difference" validate:"omitempty,min=0"`
	TempInfo       *int    `yaml:"temp_info" validate:"omitempty,min=0"`
	TempCrit       *int    `yaml:"temp_crit" validate:"omitempty,min=0"`
}

var smartModule = define("smart", "Configure the S.M.A.R.T. service", nil, nil, runSmart)

func runSmart(ctx context.Context, env *Env, p *SmartParams) (*types.Result, error) {
	res := types.NewResult()

	cfg, err := getConfig[types.SmartConfig](ctx, env.MW, "smart.config")

	if err != nil {
		return nil, fmt.Errorf("error looking up S.M.A.R.T. configuration: %w", err)
	}

	d := newDiff()
	update(d, "interval", p.Interval, cfg.Interval)

	// middlewared reports and expects NEVER, SLEEP...
	if p.PowerMode != nil && strings.ToLower(cfg.PowerMode) != *p.PowerMode {
		d.Set("powermode", strings.ToUpper(*p.PowerMode))
	}

	update(d, "difference", p.TempDifference, cfg.Difference)
	update(d, "informational", p.TempInfo, cfg.Informational)
	update(d, "critical", p.TempCrit, cfg.Critical)

	if d.Empty() {
		return res, nil
	}

	res.Changed = true

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated S.M.A.R.T.: %s", d)
		return res, nil
	}

	status, err := env.MW.Call(ctx, "smart.update", d)

	if err != nil {
		return nil, fmt.Errorf("error updating S.M.A.R.T. with %s: %w", d, err)
	}

	res.Msg = "Updated S.M.A.R.T. settings"
	res.Set("status", status)

	return res, nil
}
