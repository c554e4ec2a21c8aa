package modules

import (
	"context"
	"errors"
	"fmt"

	"tnctl/middleware"
	"tnctl/types"
)

type NFSShareParams struct {
	Name         string   `yaml:"name" validate:"required,notblank"`
	Path         string   `yaml:"path" validate:"required,startswith=/"`
	State        string   `yaml:"state" validate:"oneof=present absent"`
	Alldirs      *bool    `yaml:"alldirs"`
	Quiet        *bool    `yaml:"quiet"`
	Enabled      *bool    `yaml:"enabled"`
	Readonly     *bool    `yaml:"readonly"`
	MaprootUser  *string  `yaml:"maproot_user"`
	MaprootGroup *string  `yaml:"maproot_group"`
	MapallUser   *string  `yaml:"mapall_user"`
	MapallGroup  *string  `yaml:"mapall_group"`
	Networks     []string `yaml:"networks" validate:"omitempty,dive,cidr"`
	Hosts        []string `yaml:"hosts"`
}

func (p *NFSShareParams) check() error {
	if p.MaprootUser != nil && p.MapallUser != nil {
		return errors.New("maproot_user and mapall_user are mutually exclusive")
	}

	if p.MaprootGroup != nil && p.MapallGroup != nil {
		return errors.New("maproot_group and mapall_group are mutually exclusive")
	}

	if p.MaprootGroup != nil && p.MaprootUser == nil {
		return errors.New("maproot_group requires maproot_user")
	}

	if p.MapallGroup != nil && p.MapallUser == nil {
		return errors.New("mapall_group requires mapall_user")
	}

	return nil
}

// Exports are identified by their comment, which the module calls name
var sharingNFSModule = define(
	"sharing_nfs",
	"Manage NFS exports",
	map[string]string{"comment": "name"},
	func() *NFSShareParams { return &NFSShareParams{State: StatePresent} },
	runSharingNFS,
)

func runSharingNFS(ctx context.Context, env *Env, p *NFSShareParams) (*types.Result, error) {
	res := types.NewResult()

	export, err := queryOne[types.NFSShare](ctx, env.MW, "sharing.nfs.query", middleware.Eq("comment", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up NFS export %s: %w", p.Name, err)
	}

	switch {
	case export == nil && p.State == StateAbsent:
		return res, nil

	case export == nil:
		d := newDiff()
		d.Set("comment", p.Name)
		d.Set("path", p.Path)
		add(d, "alldirs", p.Alldirs)
		add(d, "quiet", p.Quiet)
		add(d, "enabled", p.Enabled)
		add(d, "ro", p.Readonly)
		add(d, "maproot_user", p.MaprootUser)
		add(d, "maproot_group", p.MaprootGroup)
		add(d, "mapall_user", p.MapallUser)
		add(d, "mapall_group", p.MapallGroup)

		if p.Networks != nil {
			d.Set("networks", p.Networks)
		}

		if p.Hosts != nil {
			d.Set("hosts", p.Hosts)
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created NFS export %q with %s", p.Name, d)
			return res, nil
		}

		id, err := env.MW.Call(ctx, "sharing.nfs.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating NFS export %q: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Created NFS export %q", p.Name)
		res.Set("resource_id", id)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted NFS export %q.", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "sharing.nfs.delete", export.ID); err != nil {
			return nil, fmt.Errorf("error deleting NFS export %q: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted NFS export %q", p.Name)

	default:
		d := newDiff()
		update(d, "alldirs", p.Alldirs, export.Alldirs)
		update(d, "quiet", p.Quiet, export.Quiet)
		update(d, "enabled", p.Enabled, export.Enabled)
		update(d, "ro", p.Readonly, export.RO)

		// maproot and mapall can't both be set, so setting one clears the other
		if updatePtr(d, "maproot_user", p.MaprootUser, export.MaprootUser) && export.MapallUser != nil {
			d.Set("mapall_user", nil)
		}

		if updatePtr(d, "maproot_group", p.MaprootGroup, export.MaprootGroup) && export.MapallGroup != nil {
			d.Set("mapall_group", nil)
		}

		if updatePtr(d, "mapall_user", p.MapallUser, export.MapallUser) && export.MaprootUser != nil {
			d.Set("maproot_user", nil)
		}

		if updatePtr(d, "mapall_group", p.MapallGroup, export.MapallGroup) && export.MaprootGroup != nil {
			d.Set("maproot_group", nil)
		}

		update(d, "path", &p.Path, export.Path)
		updateSet(d, "networks", p.Networks, export.Networks)
		updateSet(d, "hosts", p.Hosts, export.Hosts)

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated NFS export %q: %s", p.Name, d)
			return res, nil
		}

		status, err := env.MW.Call(ctx, "sharing.nfs.update", export.ID, d)

		if err != nil {
			return nil, fmt.Errorf("error updating NFS export %q with %s: %w", p.Name, d, err)
		}

		res.Msg = fmt.Sprintf("Updated NFS export %q", p.Name)
		res.Set("status", status)
	}

	return res, nil
}
