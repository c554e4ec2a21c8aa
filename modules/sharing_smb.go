package modules

import (
	"context"
	"fmt"

	"tnctl/middleware"
	"tnctl/types"
)

type SMBShareParams struct {
	Path          string   `yaml:"path" validate:"required,startswith=/"`
	Name          string   `yaml:"name" validate:"required,notblank"`
	State         string   `yaml:"state" validate:"oneof=present absent"`
	Purpose       *string  `yaml:"purpose" validate:"omitempty,oneof=NO_PRESET DEFAULT_SHARE ENHANCED_TIMEMACHINE MULTI_PROTOCOL_AFP MULTI_PROTOCOL_NFS PRIVATE_DATASETS WORM_DROPBOX"`
	HostsAllow    []string `yaml:"hostsallow"`
	HostsDeny     []string `yaml:"hostsdeny"`
	Enabled       *bool    `yaml:"enabled"`
	PathSuffix    *string  `yaml:"path_suffix"`
	Comment       *string  `yaml:"comment"`
	AuxSMBConf    *string  `yaml:"auxsmbconf"`
	Home          *bool    `yaml:"home"`
	RO            *bool    `yaml:"ro"`
	Browsable     *bool    `yaml:"browsable"`
	Timemachine   *bool    `yaml:"timemachine"`
	Recyclebin    *bool    `yaml:"recyclebin"`
	GuestOK       *bool    `yaml:"guestok"`
	ABE           *bool    `yaml:"abe"`
	AppleEncoding *bool    `yaml:"apple_encoding"`
	ACL           *bool    `yaml:"acl"`
	DurableHandle *bool    `yaml:"durablehandle"`
	ShadowCopy    *bool    `yaml:"shadowcopy"`
	Streams       *bool    `yaml:"streams"`
	FSRVP         *bool    `yaml:"fsrvp"`
}

var sharingSMBModule = define(
	"sharing_smb",
	"Manage SMB shares",
	nil,
	func() *SMBShareParams { return &SMBShareParams{State: StatePresent} },
	runSharingSMB,
)

// Boolean share options, keyed by their middleware name
func (p *SMBShareParams) flags(s *types.SMBShare) []struct {
	key  string
	want *bool
	have bool
} {
	if s == nil {
		s = &types.SMBShare{}
	}

	return []struct {
		key  string
		want *bool
		have bool
	}{
		{"enabled", p.Enabled, s.Enabled},
		{"home", p.Home, s.Home},
		{"ro", p.RO, s.RO},
		{"browsable", p.Browsable, s.Browsable},
		{"timemachine", p.Timemachine, s.Timemachine},
		{"recyclebin", p.Recyclebin, s.Recyclebin},
		{"guestok", p.GuestOK, s.GuestOK},
		{"abe", p.ABE, s.ABE},
		{"aapl_name_mangling", p.AppleEncoding, s.AAPLNameMangling},
		{"acl", p.ACL, s.ACL},
		{"durablehandle", p.DurableHandle, s.DurableHandle},
		{"shadowcopy", p.ShadowCopy, s.ShadowCopy},
		{"streams", p.Streams, s.Streams},
		{"fsrvp", p.FSRVP, s.FSRVP},
	}
}

func runSharingSMB(ctx context.Context, env *Env, p *SMBShareParams) (*types.Result, error) {
	res := types.NewResult()

	share, err := queryOne[types.SMBShare](ctx, env.MW, "sharing.smb.query", middleware.Eq("path", p.Path))

	if err != nil {
		return nil, fmt.Errorf("error looking up share %s: %w", p.Name, err)
	}

	switch {
	case share == nil && p.State == StateAbsent:
		return res, nil

	case share == nil:
		d := newDiff()
		d.Set("path", p.Path)
		d.Set("name", p.Name)
		add(d, "purpose", p.Purpose)

		if p.HostsAllow != nil {
			d.Set("hostsallow", p.HostsAllow)
		}

		if p.HostsDeny != nil {
			d.Set("hostsdeny", p.HostsDeny)
		}

		add(d, "path_suffix", p.PathSuffix)
		add(d, "comment", p.Comment)
		add(d, "auxsmbconf", p.AuxSMBConf)

		for _, f := range p.flags(nil) {
			add(d, f.key, f.want)
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created share %s with %s", p.Name, d)
			return res, nil
		}

		created, err := env.MW.Call(ctx, "sharing.smb.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating share %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Created share %s", p.Name)
		res.Set("share", created)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted share %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "sharing.smb.delete", share.ID); err != nil {
			return nil, fmt.Errorf("error deleting share %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted share %s", p.Name)

	default:
		d := newDiff()

		if share.Name != p.Name {
			d.Set("name", p.Name)
		}

		update(d, "purpose", p.Purpose, share.Purpose)
		updateSet(d, "hostsallow", p.HostsAllow, share.HostsAllow)
		updateSet(d, "hostsdeny", p.HostsDeny, share.HostsDeny)
		update(d, "path_suffix", p.PathSuffix, share.PathSuffix)
		update(d, "comment", p.Comment, share.Comment)
		update(d, "auxsmbconf", p.AuxSMBConf, share.AuxSMBConf)

		for _, f := range p.flags(share) {
			update(d, f.key, f.want, f.have)
		}

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated share %s: %s", p.Name, d)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "sharing.smb.update", share.ID, d); err != nil {
			return nil, fmt.Errorf("error updating share %s with %s: %w", p.Name, d, err)
		}

		res.Msg = fmt.Sprintf("Updated share %s", p.Name)
	}

	return res, nil
}
