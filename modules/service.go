package modules

import (
	"context"
	"errors"
	"fmt"

	"tnctl/middleware"
	"tnctl/types"
)

type ServiceParams struct {
	Name    string  `yaml:"name" validate:"required,notblank"`
	State   *string `yaml:"state" validate:"omitempty,oneof=started stopped restarted reloaded"`
	Enabled *bool   `yaml:"enabled"`
}

func (p *ServiceParams) check() error {
	if p.State == nil && p.Enabled == nil {
		return errors.New("one of state or enabled is required")
	}
	return nil
}

var serviceModule = define("service", "Start, stop, reload or enable a TrueNAS service", nil, nil, runService)

func runService(ctx context.Context, env *Env, p *ServiceParams) (*types.Result, error) {
	res := types.NewResult()

	svc, err := queryOne[types.Service](ctx, env.MW, "service.query", middleware.Eq("service", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up service %s: %w", p.Name, err)
	}

	if svc == nil {
		return nil, fmt.Errorf("no such service: %s", p.Name)
	}

	res.Set("service_state", svc)

	if p.State != nil {
		var method, msg string

		switch *p.State {
		case "started":
			if svc.State != "RUNNING" {
				method, msg = "service.start", "service started"
			}
		case "stopped":
			if svc.State != "STOPPED" {
				method, msg = "service.stop", "service stopped"
			}
		case "restarted":
			method, msg = "service.restart", "service restarted"
		case "reloaded":
			method, msg = "service.reload", "service reloaded"
		}

		if method != "" {
			if !env.CheckMode {
				if _, err := env.MW.Call(ctx, method, p.Name); err != nil {
					return nil, fmt.Errorf("error calling %s for %s: %w", method, p.Name, err)
				}
			}

			res.Changed = true
			res.AddMsg(msg)
		}
	}

	if p.Enabled != nil && svc.Enable != *p.Enabled {
		if !env.CheckMode {
			if _, err := env.MW.Call(ctx, "service.update", p.Name, map[string]any{"enable": *p.Enabled}); err != nil {
				return nil, fmt.Errorf("error setting enable for %s: %w", p.Name, err)
			}
		}

		res.Changed = true

		if *p.Enabled {
			res.AddMsg("service enabled")
		} else {
			res.AddMsg("service disabled")
		}
	}

	return res, nil
}
