package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tnctl/middleware"
	"tnctl/types"
)

type InitScriptParams struct {
	Name    string  `yaml:"name" validate:"required,notblank"`
	State   string  `yaml:"state" validate:"oneof=present absent"`
	Command *string `yaml:"command"`
	Path    *string `yaml:"path" validate:"omitempty,startswith=/"`
	Script  *string `yaml:"script"`
	When    string  `yaml:"when" validate:"omitempty,oneof=preinit postinit shutdown PREINIT POSTINIT SHUTDOWN"`
	Timeout *int    `yaml:"timeout" validate:"omitempty,min=0"`
	Enabled *bool   `yaml:"enabled"`
}

func (p *InitScriptParams) check() error {
	n := 0
	for _, s := range []*string{p.Command, p.Path, p.Script} {
		if s != nil {
			n++
		}
	}

	if n > 1 {
		return errors.New("command, path and script are mutually exclusive")
	}

	if p.State == StatePresent {
		if n == 0 {
			return errors.New("one of command, path or script is required")
		}
		if p.When == "" {
			return errors.New("when is required")
		}
	}

	p.When = strings.ToUpper(p.When)
	return nil
}

var initScriptModule = define(
	"initscript",
	"Run a command or script at boot or shutdown",
	map[string]string{
		"cmd":     "command",
		"comment": "name",
	},
	func() *InitScriptParams { return &InitScriptParams{State: StatePresent} },
	runInitScript,
)

// scriptFields returns the type and the command/script/script_text values middlewared
// stores. The two fields that don't apply are cleared.
func (p *InitScriptParams) scriptFields() (string, map[string]string) {
	switch {
	case p.Command != nil:
		return "COMMAND", map[string]string{"command": *p.Command, "script": "", "script_text": ""}
	case p.Path != nil:
		return "SCRIPT", map[string]string{"command": "", "script": *p.Path, "script_text": ""}
	default:
		return "SCRIPT", map[string]string{"command": "", "script": "", "script_text": *p.Script}
	}
}

func runInitScript(ctx context.Context, env *Env, p *InitScriptParams) (*types.Result, error) {
	res := types.NewResult()

	script, err := queryOne[types.InitScript](ctx, env.MW, "initshutdownscript.query", middleware.Eq("comment", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up init script %s: %w", p.Name, err)
	}

	switch {
	case script == nil && p.State == StateAbsent:
		return res, nil

	case script == nil:
		typ, fields := p.scriptFields()

		d := newDiff()
		d.Set("comment", p.Name)
		d.Set("type", typ)

		for _, k := range []string{"command", "script", "script_text"} {
			if fields[k] != "" {
				d.Set(k, fields[k])
			}
		}

		d.Set("when", p.When)
		add(d, "timeout", p.Timeout)
		add(d, "enabled", p.Enabled)

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created init script %s with %s", p.Name, d)
			return res, nil
		}

		created, err := env.MW.Call(ctx, "initshutdownscript.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating init script %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Created init script %s", p.Name)
		res.Set("script", created)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted init script %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "initshutdownscript.delete", script.ID); err != nil {
			return nil, fmt.Errorf("error deleting init script %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted init script %s", p.Name)

	default:
		typ, fields := p.scriptFields()

		d := newDiff()
		update(d, "type", &typ, script.Type)

		have := map[string]string{"command": script.Command, "script": script.Script, "script_text": script.ScriptText}
		for _, k := range []string{"command", "script", "script_text"} {
			want := fields[k]
			update(d, k, &want, have[k])
		}

		update(d, "when", &p.When, script.When)
		update(d, "timeout", p.Timeout, script.Timeout)
		update(d, "enabled", p.Enabled, script.Enabled)

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated init script %s: %s", p.Name, d)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "initshutdownscript.update", script.ID, d); err != nil {
			return nil, fmt.Errorf("error updating init script %s with %s: %w", p.Name, d, err)
		}

		res.Msg = fmt.Sprintf("Updated init script %s", p.Name)
	}

	return res, nil
}
