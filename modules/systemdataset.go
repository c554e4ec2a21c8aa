package modules

import (
	"context"
	"fmt"

	"tnctl/types"
)

type SystemDatasetParams struct {
	Pool   *string `yaml:"pool" validate:"omitempty,notblank"`
	Syslog *bool   `yaml:"syslog"`
}

var systemDatasetModule = define("systemdataset", "Choose the pool that holds the system dataset", nil, nil, runSystemDataset)

func runSystemDataset(ctx context.Context, env *Env, p *SystemDatasetParams) (*types.Result, error) {
	res := types.NewResult()

	cfg, err := getConfig[types.SystemDataset](ctx, env.MW, "systemdataset.config")

	if err != nil {
		return nil, fmt.Errorf("error getting system dataset config: %w", err)
	}

	res.Set("systemdataset", cfg)

	d := newDiff()
	update(d, "pool", p.Pool, cfg.Pool)
	update(d, "syslog", p.Syslog, cfg.Syslog)

	if d.Empty() {
		return res, nil
	}

	res.Changed = true
	res.Set("invocation", d)

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated system dataset: %s", d)
		return res, nil
	}

	// Moving the system dataset is a job
	if _, err := env.MW.Job(ctx, "systemdataset.update", d); err != nil {
		return nil, fmt.Errorf("error updating system dataset with %s: %w", d, err)
	}

	res.Msg = "Updated"

	return res, nil
}
