package modules

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tnctl/middleware"
	"tnctl/types"
)

type DatasetParams struct {
	Name        string  `yaml:"name" validate:"required,notblank,nospaces,contains=/"`
	State       string  `yaml:"state" validate:"oneof=present absent"`
	Comments    *string `yaml:"comments"`
	Compression *string `yaml:"compression" validate:"omitempty,nospaces"`
	Atime       *bool   `yaml:"atime"`
	Quota       *int64  `yaml:"quota" validate:"omitempty,min=0"`
	Readonly    *bool   `yaml:"readonly"`
}

var datasetModule = define(
	"dataset",
	"Create, update or delete a ZFS dataset",
	nil,
	func() *DatasetParams { return &DatasetParams{State: StatePresent} },
	runDataset,
)

func onOff(b *bool) *string {
	if b == nil {
		return nil
	}

	s := "OFF"
	if *b {
		s = "ON"
	}

	return &s
}

func runDataset(ctx context.Context, env *Env, p *DatasetParams) (*types.Result, error) {
	res := types.NewResult()

	ds, err := queryOne[types.Dataset](ctx, env.MW, "pool.dataset.query", middleware.Eq("name", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up dataset %s: %w", p.Name, err)
	}

	var compression *string
	if p.Compression != nil {
		c := strings.ToUpper(*p.Compression)
		compression = &c
	}

	switch {
	case ds == nil && p.State == StateAbsent:
		return res, nil

	case ds == nil:
		d := newDiff()
		d.Set("name", p.Name)
		add(d, "comments", p.Comments)
		add(d, "compression", compression)
		add(d, "atime", onOff(p.Atime))
		add(d, "quota", p.Quota)
		add(d, "readonly", onOff(p.Readonly))

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created dataset %s with %s", p.Name, d)
			return res, nil
		}

		created, err := env.MW.Call(ctx, "pool.dataset.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating dataset %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Created dataset %s", p.Name)
		res.Set("dataset", created)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted dataset %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "pool.dataset.delete", ds.ID); err != nil {
			return nil, fmt.Errorf("error deleting dataset %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted dataset %s", p.Name)

	default:
		res.Set("info", ds)

		d := newDiff()
		update(d, "comments", p.Comments, ds.Comments.Value)

		if compression != nil && !strings.EqualFold(*compression, ds.Compression.Value) {
			d.Set("compression", *compression)
		}

		update(d, "atime", onOff(p.Atime), strings.ToUpper(ds.Atime.Value))

		if p.Quota != nil && strconv.FormatInt(*p.Quota, 10) != quotaRaw(ds.Quota) {
			d.Set("quota", *p.Quota)
		}

		update(d, "readonly", onOff(p.Readonly), strings.ToUpper(ds.Readonly.Value))

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated dataset %s: %s", p.Name, d)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "pool.dataset.update", ds.ID, d); err != nil {
			return nil, fmt.Errorf("error updating dataset %s with %s: %w", p.Name, d, err)
		}

		res.Msg = fmt.Sprintf("Updated dataset %s", p.Name)
	}

	return res, nil
}

// No quota shows up as rawvalue "0", or as an unset property on some releases
func quotaRaw(q types.DatasetProperty) string {
	if q.RawValue == "" || q.RawValue == "none" {
		return "0"
	}
	return q.RawValue
}
