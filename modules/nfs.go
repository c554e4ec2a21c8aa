package modules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tnctl/types"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	nfsV3 = "NFSV3"
	nfsV4 = "NFSV4"
)

type NFSParams struct {
	Servers         *int     `yaml:"servers" validate:"omitempty,min=1,max=256"`
	UDP             *bool    `yaml:"udp"`
	AllowNonroot    *bool    `yaml:"allow_nonroot"`
	NFSv4           *bool    `yaml:"nfsv4"`
	Protocols       []string `yaml:"protocols"`
	V3Owner         *bool    `yaml:"v3owner"`
	Krb             *bool    `yaml:"krb"`
	Domain          *string  `yaml:"domain"`
	BindIP          []string `yaml:"bindip" validate:"omitempty,dive,ip"`
	MountdPort      *int     `yaml:"mountd_port" validate:"omitempty,min=1,max=65535"`
	RPCStatdPort    *int     `yaml:"rpcstatd_port" validate:"omitempty,min=1,max=65535"`
	RPCLockdPort    *int     `yaml:"rpclockd_port" validate:"omitempty,min=1,max=65535"`
	UserdManageGids *bool    `yaml:"userd_manage_gids"`
	MountdLog       *bool    `yaml:"mountd_log"`
	StatdLockdLog   *bool    `yaml:"statd_lockd_log"`
}

func (p *NFSParams) check() error {
	if p.NFSv4 != nil && p.Protocols != nil {
		return errors.New("nfsv4 and protocols are mutually exclusive")
	}

	for _, proto := range p.Protocols {
		if _, err := normalizeProtocol(proto); err != nil {
			return err
		}
	}

	return nil
}

// normalizeProtocol accepts nfsv3, NFSv3, v3, V3 and so on
func normalizeProtocol(s string) (string, error) {
	u := strings.TrimPrefix(strings.ToUpper(s), "NFS")

	switch u {
	case "V3":
		return nfsV3, nil
	case "V4":
		return nfsV4, nil
	}

	return "", fmt.Errorf("unknown NFS protocol %q", s)
}

var nfsModule = define("nfs", "Configure the NFS service", nil, nil, runNFS)

func runNFS(ctx context.Context, env *Env, p *NFSParams) (*types.Result, error) {
	res := types.NewResult()

	if p.V3Owner != nil {
		res.Warn("v3owner has no effect and is ignored")
	}

	var want mapset.Set[string]

	switch {
	case p.Protocols != nil:
		want = mapset.NewSet[string]()
		for _, proto := range p.Protocols {
			n, _ := normalizeProtocol(proto)
			want.Add(n)
		}
	case p.NFSv4 != nil:
		want = mapset.NewSet(nfsV3)
		if *p.NFSv4 {
			want.Add(nfsV4)
		}
	}

	cfg, err := getConfig[types.NFSConfig](ctx, env.MW, "nfs.config")

	if err != nil {
		return nil, fmt.Errorf("error looking up nfs configuration: %w", err)
	}

	res.Set("status", cfg)

	// Newer releases have a protocols list, older ones only a v4 toggle
	useProtocols := cfg.Protocols != nil

	d := newDiff()
	update(d, "servers", p.Servers, cfg.Servers)
	update(d, "udp", p.UDP, cfg.UDP)
	update(d, "allow_nonroot", p.AllowNonroot, cfg.AllowNonroot)

	if want != nil {
		if !useProtocols {
			want.Add(nfsV3)
		}

		var have mapset.Set[string]

		if cfg.V4 != nil {
			have = mapset.NewSet(nfsV3)
			if *cfg.V4 {
				have.Add(nfsV4)
			}
		} else {
			have = mapset.NewSet(cfg.Protocols...)
		}

		if !have.Equal(want) {
			if useProtocols {
				protos := want.ToSlice()
				sort.Strings(protos)
				d.Set("protocols", protos)
			} else {
				d.Set("v4", want.Contains(nfsV4))
			}
		}
	}

	update(d, "v4_krb", p.Krb, cfg.V4Krb)
	update(d, "v4_domain", p.Domain, cfg.V4Domain)
	updateSet(d, "bindip", p.BindIP, cfg.BindIP)
	updatePtr(d, "mountd_port", p.MountdPort, cfg.MountdPort)
	updatePtr(d, "rpcstatd_port", p.RPCStatdPort, cfg.RPCStatdPort)
	updatePtr(d, "rpclockd_port", p.RPCLockdPort, cfg.RPCLockdPort)
	update(d, "userd_manage_gids", p.UserdManageGids, cfg.UserdManageGids)
	update(d, "mountd_log", p.MountdLog, cfg.MountdLog)
	update(d, "statd_lockd_log", p.StatdLockdLog, cfg.StatdLockdLog)

	if d.Empty() {
		return res, nil
	}

	res.Changed = true

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated nfs: %s", d)
		return res, nil
	}

	status, err := env.MW.Call(ctx, "nfs.update", d)

	if err != nil {
		return nil, fmt.Errorf("error updating nfs with %s: %w", d, err)
	}

	res.Msg = "Updated NFS settings"
	res.Set("status", status)

	return res, nil
}
