package modules

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"tnctl/middleware"
	"tnctl/types"
)

type UserProperty struct {
	Key    string `yaml:"key" validate:"required,notblank,contains=:"`
	Value  string `yaml:"value"`
	Remove bool   `yaml:"remove"`
}

type FilesystemParams struct {
	Name  string `yaml:"name" validate:"required,notblank,nospaces,contains=/"`
	State string `yaml:"state" validate:"oneof=present absent"`
	Type  string `yaml:"type" validate:"oneof=FILESYSTEM VOLUME filesystem volume"`

	// Volumes only
	Volsize      *int64  `yaml:"volsize" validate:"omitempty,min=1"`
	Volblocksize *string `yaml:"volblocksize" validate:"omitempty,oneof=512 512B 1K 2K 4K 8K 16K 32K 64K 128K 256K 65536"`
	Sparse       *bool   `yaml:"sparse"`
	ForceSize    *bool   `yaml:"force_size"`

	CreateAncestors *bool   `yaml:"create_ancestors"`
	Comment         *string `yaml:"comment"`

	Sync          *string `yaml:"sync"`
	Snapdev       *string `yaml:"snapdev"`
	Compression   *string `yaml:"compression"`
	Atime         *string `yaml:"atime"`
	Exec          *string `yaml:"exec"`
	Snapdir       *string `yaml:"snapdir"`
	Deduplication *string `yaml:"deduplication"`
	Checksum      *string `yaml:"checksum"`
	Readonly      *string `yaml:"readonly"`
	Recordsize    *string `yaml:"recordsize"`
	Aclmode       *string `yaml:"aclmode"`
	Acltype       *string `yaml:"acltype"`
	Xattr         *string `yaml:"xattr"`
	Managedby     *string `yaml:"managedby"`
	Copies        *int    `yaml:"copies" validate:"omitempty,min=1,max=3"`

	Quota                 *int64 `yaml:"quota" validate:"omitempty,min=0"`
	QuotaWarning          *int64 `yaml:"quota_warning" validate:"omitempty,min=0,max=100"`
	QuotaCritical         *int64 `yaml:"quota_critical" validate:"omitempty,min=0,max=100"`
	Refquota              *int64 `yaml:"refquota" validate:"omitempty,min=0"`
	RefquotaWarning       *int64 `yaml:"refquota_warning" validate:"omitempty,min=0,max=100"`
	RefquotaCritical      *int64 `yaml:"refquota_critical" validate:"omitempty,min=0,max=100"`
	Reservation           *int64 `yaml:"reservation" validate:"omitempty,min=0"`
	Refreservation        *int64 `yaml:"refreservation" validate:"omitempty,min=0"`
	SpecialSmallBlockSize *int64 `yaml:"special_small_block_size" validate:"omitempty,min=0"`

	// The complete set of user properties. Properties not listed are removed.
	UserProperties []UserProperty `yaml:"user_properties" validate:"omitempty,dive"`
	// Individual properties to set or remove, leaving the others alone
	UserPropertiesUpdate []UserProperty `yaml:"user_properties_update" validate:"omitempty,dive"`
}

func (p *FilesystemParams) check() error {
	p.Type = strings.ToUpper(p.Type)

	if p.Type != "VOLUME" && (p.Volsize != nil || p.Volblocksize != nil || p.Sparse != nil || p.ForceSize != nil) {
		return errors.New("volsize, volblocksize, sparse and force_size only apply to volumes")
	}

	return nil
}

var filesystemModule = define(
	"filesystem",
	"Manage a ZFS filesystem or volume and its properties",
	map[string]string{"comments": "comment"},
	func() *FilesystemParams { return &FilesystemParams{State: StatePresent, Type: "FILESYSTEM"} },
	runFilesystem,
)

// Properties whose values middlewared reports in a different case than it accepts
var caseless = map[string]bool{
	"on": true, "off": true, "inherit": true, "standard": true, "always": true, "disabled": true,
	"visible": true, "hidden": true, "lz4": true, "zstd": true, "nfsv4": true, "posix": true,
	"restricted": true, "passthrough": true, "discard": true, "verify": true,
}

// datasetProps is a pool.dataset.query entry. Every ZFS property is an object holding
// value, rawvalue and source.
type datasetProps map[string]any

func (ds datasetProps) prop(key string) (types.DatasetProperty, bool) {
	var p types.DatasetProperty

	raw, ok := ds[key]

	if !ok || raw == nil {
		return p, false
	}

	if err := middleware.Decode(raw, &p); err != nil {
		return p, false
	}

	return p, true
}

// sameProp reports whether want is what the dataset already has for key. "inherit"
// matches any property that isn't set locally.
func (ds datasetProps) sameProp(key, want string) bool {
	have, ok := ds.prop(key)

	if strings.EqualFold(want, "inherit") {
		return !ok || have.Source != "LOCAL"
	}

	if !ok {
		return false
	}

	if caseless[strings.ToLower(want)] {
		return strings.EqualFold(want, have.Value) || strings.EqualFold(want, have.RawValue)
	}

	return want == have.Value || want == have.RawValue
}

// sameSize compares a byte count against a numeric property. Unset shows up as "none"
// or "0".
func (ds datasetProps) sameSize(key string, want int64) bool {
	have, ok := ds.prop(key)

	if !ok || have.RawValue == "" || have.RawValue == "none" {
		return want == 0
	}

	n, err := strconv.ParseInt(have.RawValue, 10, 64)
	return err == nil && n == want
}

// blockSize parses sizes like 512B, 16K or 65536
func blockSize(s string) (int64, error) {
	s = strings.TrimSuffix(strings.ToUpper(s), "B")

	mult := int64(1)
	if strings.HasSuffix(s, "K") {
		mult = 1024
		s = strings.TrimSuffix(s, "K")
	}

	n, err := strconv.ParseInt(s, 10, 64)

	if err != nil {
		return 0, fmt.Errorf("bad block size %q", s)
	}

	return n * mult, nil
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}

	u := strings.ToUpper(*s)
	return &u
}

// stringProps maps parameter values to middleware property names. managedby is free text
// and keeps its case.
func (p *FilesystemParams) stringProps() []struct {
	key string
	val *string
} {
	return []struct {
		key string
		val *string
	}{
		{"sync", upper(p.Sync)},
		{"snapdev", upper(p.Snapdev)},
		{"compression", upper(p.Compression)},
		{"atime", upper(p.Atime)},
		{"exec", upper(p.Exec)},
		{"snapdir", upper(p.Snapdir)},
		{"deduplication", upper(p.Deduplication)},
		{"checksum", upper(p.Checksum)},
		{"readonly", upper(p.Readonly)},
		{"recordsize", upper(p.Recordsize)},
		{"aclmode", upper(p.Aclmode)},
		{"acltype", upper(p.Acltype)},
		{"xattr", upper(p.Xattr)},
		{"managedby", p.Managedby},
	}
}

func (p *FilesystemParams) sizeProps() []struct {
	key string
	val *int64
} {
	return []struct {
		key string
		val *int64
	}{
		{"quota", p.Quota},
		{"quota_warning", p.QuotaWarning},
		{"quota_critical", p.QuotaCritical},
		{"refquota", p.Refquota},
		{"refquota_warning", p.RefquotaWarning},
		{"refquota_critical", p.RefquotaCritical},
		{"reservation", p.Reservation},
		{"refreservation", p.Refreservation},
		{"special_small_block_size", p.SpecialSmallBlockSize},
	}
}

func runFilesystem(ctx context.Context, env *Env, p *FilesystemParams) (*types.Result, error) {
	res := types.NewResult()

	raw, err := env.MW.Call(ctx, "pool.dataset.query", middleware.Eq("name", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up filesystem %s: %w", p.Name, err)
	}

	var found []datasetProps

	if err := middleware.Decode(raw, &found); err != nil {
		return nil, fmt.Errorf("can't decode pool.dataset.query result: %w", err)
	}

	switch {
	case len(found) == 0 && p.State == StateAbsent:
		return res, nil

	case len(found) == 0:
		return createFilesystem(ctx, env, p, res)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted filesystem %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "pool.dataset.delete", p.Name, map[string]any{"recursive": true}); err != nil {
			return nil, fmt.Errorf("error deleting filesystem %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted filesystem %s", p.Name)
		return res, nil
	}

	return updateFilesystem(ctx, env, p, found[0], res)
}

func createFilesystem(ctx context.Context, env *Env, p *FilesystemParams, res *types.Result) (*types.Result, error) {
	d := newDiff()
	d.Set("name", p.Name)
	d.Set("type", p.Type)

	if p.Type == "VOLUME" {
		if p.Volsize == nil {
			return nil, fmt.Errorf("volsize is required to create volume %s", p.Name)
		}

		d.Set("volsize", *p.Volsize)
		add(d, "volblocksize", upper(p.Volblocksize))
		add(d, "sparse", p.Sparse)
		add(d, "force_size", p.ForceSize)
	}

	if p.CreateAncestors != nil && *p.CreateAncestors {
		v, err := middleware.GetVersion(ctx, env.MW)

		if err != nil {
			return nil, fmt.Errorf("error getting TrueNAS version: %w", err)
		}

		if v.Type == middleware.ProductCore {
			res.Warn("create_ancestors is not supported on TrueNAS CORE; parent datasets must exist")
		} else {
			d.Set("create_ancestors", true)
		}
	}

	add(d, "comments", p.Comment)

	for _, sp := range p.stringProps() {
		add(d, sp.key, sp.val)
	}

	add(d, "copies", p.Copies)

	for _, sp := range p.sizeProps() {
		add(d, sp.key, sp.val)
	}

	if len(p.UserProperties) > 0 || len(p.UserPropertiesUpdate) > 0 {
		var props []map[string]string

		for _, up := range append(append([]UserProperty{}, p.UserProperties...), p.UserPropertiesUpdate...) {
			if up.Remove {
				continue
			}
			props = append(props, map[string]string{"key": up.Key, "value": up.Value})
		}

		if len(props) > 0 {
			d.Set("user_properties", props)
		}
	}

	res.Changed = true
	res.Set("invocation", d)

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have created filesystem %s with %s", p.Name, d)
		return res, nil
	}

	created, err := env.MW.Call(ctx, "pool.dataset.create", d)

	if err != nil {
		return nil, fmt.Errorf("error creating filesystem %s: %w", p.Name, err)
	}

	res.Msg = fmt.Sprintf("Created filesystem %s", p.Name)
	res.Set("filesystem", created)

	return res, nil
}

func updateFilesystem(ctx context.Context, env *Env, p *FilesystemParams, ds datasetProps, res *types.Result) (*types.Result, error) {
	d := newDiff()

	if p.Type == "VOLUME" {
		if p.Volsize != nil && !ds.sameSize("volsize", *p.Volsize) {
			d.Set("volsize", *p.Volsize)

			if p.ForceSize != nil && *p.ForceSize {
				d.Set("force_size", true)
			}
		}

		if p.Volblocksize != nil {
			want, err := blockSize(*p.Volblocksize)

			if err != nil {
				return nil, err
			}

			if !ds.sameSize("volblocksize", want) {
				return nil, fmt.Errorf("volblocksize of %s can't be changed after creation", p.Name)
			}
		}

		if p.Sparse != nil {
			res.Warn("sparse only applies when a volume is created; ignored")
		}
	}

	if p.Comment != nil && !ds.sameProp("comments", *p.Comment) {
		d.Set("comments", *p.Comment)
	}

	for _, sp := range p.stringProps() {
		if sp.val != nil && !ds.sameProp(sp.key, *sp.val) {
			d.Set(sp.key, *sp.val)
		}
	}

	if p.Copies != nil && !ds.sameProp("copies", strconv.Itoa(*p.Copies)) {
		d.Set("copies", *p.Copies)
	}

	for _, sp := range p.sizeProps() {
		if sp.val != nil && !ds.sameSize(sp.key, *sp.val) {
			d.Set(sp.key, *sp.val)
		}
	}

	if changes := userPropertyChanges(p, ds); len(changes) > 0 {
		d.Set("user_properties_update", changes)
	}

	if d.Empty() {
		return res, nil
	}

	res.Changed = true
	res.Set("invocation", d)

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated filesystem %s: %s", p.Name, d)
		return res, nil
	}

	if _, err := env.MW.Call(ctx, "pool.dataset.update", p.Name, d); err != nil {
		return nil, fmt.Errorf("error updating filesystem %s with %s: %w", p.Name, d, err)
	}

	res.Msg = fmt.Sprintf("Updated filesystem %s", p.Name)
	return res, nil
}

// userPropertyChanges builds the user_properties_update list. Existing local properties
// missing from user_properties are removed.
func userPropertyChanges(p *FilesystemParams, ds datasetProps) []map[string]any {
	have := map[string]string{}

	if raw, ok := ds["user_properties"].(map[string]any); ok {
		for k, v := range raw {
			var prop types.DatasetProperty
			if err := middleware.Decode(v, &prop); err == nil && prop.Source == "LOCAL" {
				have[k] = prop.Value
			}
		}
	}

	var out []map[string]any
	seen := map[string]bool{}

	set := func(up UserProperty) {
		seen[up.Key] = true

		if up.Remove {
			if _, ok := have[up.Key]; ok {
				out = append(out, map[string]any{"key": up.Key, "remove": true})
			}
			return
		}

		if v, ok := have[up.Key]; !ok || v != up.Value {
			out = append(out, map[string]any{"key": up.Key, "value": up.Value})
		}
	}

	for _, up := range p.UserProperties {
		set(up)
	}

	if p.UserProperties != nil {
		for _, k := range slices.Sorted(maps.Keys(have)) {
			if !seen[k] {
				out = append(out, map[string]any{"key": k, "remove": true})
				seen[k] = true
			}
		}
	}

	for _, up := range p.UserPropertiesUpdate {
		if !seen[up.Key] {
			set(up)
		}
	}

	return out
}
