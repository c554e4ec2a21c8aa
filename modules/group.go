package modules

import (
	"context"
	"errors"
	"fmt"

	"tnctl/middleware"
	"tnctl/types"
)

type GroupParams struct {
	Name      string `yaml:"name" validate:"required,notblank,nospaces"`
	GID       *int   `yaml:"gid" validate:"omitempty,min=0"`
	NonUnique *bool  `yaml:"non_unique"`
	SMB       *bool  `yaml:"smb"`
	State     string `yaml:"state" validate:"oneof=present absent"`
}

func (p *GroupParams) check() error {
	if p.NonUnique != nil && *p.NonUnique && p.GID == nil {
		return errors.New("non_unique requires gid")
	}
	return nil
}

var groupModule = define(
	"group",
	"Create, update or delete a local group",
	nil,
	func() *GroupParams { return &GroupParams{State: StatePresent} },
	runGroup,
)

func runGroup(ctx context.Context, env *Env, p *GroupParams) (*types.Result, error) {
	res := types.NewResult()

	v, err := middleware.GetVersion(ctx, env.MW)

	if err != nil {
		return nil, fmt.Errorf("error getting TrueNAS version: %w", err)
	}

	// allow_duplicate_gid was removed in 25.04
	nonUnique := p.NonUnique
	if v.IsScaleLike() && v.AtLeast("25.04") {
		nonUnique = nil
	}

	grp, err := queryOne[types.Group](ctx, env.MW, "group.query", middleware.Eq("group", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up group %s: %w", p.Name, err)
	}

	switch {
	case grp == nil && p.State == StateAbsent:
		return res, nil

	case grp == nil:
		d := newDiff()
		d.Set("name", p.Name)
		add(d, "gid", p.GID)
		add(d, "allow_duplicate_gid", nonUnique)
		add(d, "smb", p.SMB)

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created group %s with %s", p.Name, d)
			return res, nil
		}

		id, err := env.MW.Call(ctx, "group.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating group %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Created group %s", p.Name)
		res.Set("group_id", id)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted group %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "group.delete", grp.ID); err != nil {
			return nil, fmt.Errorf("error deleting group %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted group %s", p.Name)

	default:
		d := newDiff()

		if update(d, "gid", p.GID, grp.GID) {
			add(d, "allow_duplicate_gid", nonUnique)
		}

		update(d, "smb", p.SMB, grp.SMB)

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated group %s: %s", p.Name, d)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "group.update", grp.ID, d); err != nil {
			return nil, fmt.Errorf("error updating group %s with %s: %w", p.Name, d, err)
		}

		res.Msg = fmt.Sprintf("Updated group %s", p.Name)
	}

	return res, nil
}
