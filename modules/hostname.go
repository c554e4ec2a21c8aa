package modules

import (
	"context"
	"fmt"

	"tnctl/types"
)

type HostnameParams struct {
	Name string `yaml:"name" validate:"required,notblank,nospaces"`
}

var hostnameModule = define("hostname", "Set the NAS hostname", nil, nil, runHostname)

func runHostname(ctx context.Context, env *Env, p *HostnameParams) (*types.Result, error) {
	res := types.NewResult()

	cfg, err := getConfig[types.NetworkConfig](ctx, env.MW, "network.configuration.config")

	if err != nil {
		return nil, fmt.Errorf("error getting network configuration: %w", err)
	}

	res.Set("hostname", cfg.Hostname)

	if cfg.Hostname == p.Name {
		return res, nil
	}

	res.Changed = true

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated hostname to %s.", p.Name)
		return res, nil
	}

	if _, err := env.MW.Call(ctx, "network.configuration.update", map[string]any{"hostname": p.Name}); err != nil {
		return nil, fmt.Errorf("error setting hostname to %s: %w", p.Name, err)
	}

	res.Msg = fmt.Sprintf("Hostname changed from %s to %s", cfg.Hostname, p.Name)
	res.Set("hostname", p.Name)

	return res, nil
}
