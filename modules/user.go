package modules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"tnctl/middleware"
	"tnctl/types"
	"tnctl/validators"

	mapset "github.com/deckarep/golang-set/v2"
)

type UserParams struct {
	Name             string   `yaml:"name" validate:"required,notblank,nospaces"`
	UID              *int     `yaml:"uid" validate:"omitempty,min=0"`
	State            string   `yaml:"state" validate:"oneof=present absent"`
	Password         *string  `yaml:"password"`
	PasswordDisabled *bool    `yaml:"password_disabled"`
	Comment          *string  `yaml:"comment"`
	Email            *string  `yaml:"email" validate:"omitempty,email"`
	Shell            *string  `yaml:"shell"`
	Home             *string  `yaml:"home" validate:"omitempty,startswith=/"`
	SMB              *bool    `yaml:"smb"`
	Group            *string  `yaml:"group"`
	CreateGroup      bool     `yaml:"create_group"`
	Groups           []string `yaml:"groups"`
	Append           bool     `yaml:"append"`
	DeleteGroup      bool     `yaml:"delete_group"`

	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys"`
	AppendPubkeys     bool     `yaml:"append_pubkeys"`

	SudoCommands         []string `yaml:"sudo_commands"`
	SudoCommandsNopasswd []string `yaml:"sudo_commands_nopasswd"`

	// Deprecated, and only accepted by releases with the old sudo API
	Sudo         *bool `yaml:"sudo"`
	SudoNopasswd *bool `yaml:"sudo_nopasswd"`
}

func (p *UserParams) check() error {
	if p.PasswordDisabled != nil && !*p.PasswordDisabled && p.Password == nil {
		return errors.New("password is required when password_disabled is false")
	}

	return nil
}

var userModule = define(
	"user",
	"Create, update or delete a local user",
	map[string]string{
		"user":    "name",
		"pubkeys": "ssh_authorized_keys",
	},
	func() *UserParams {
		return &UserParams{
			State:       StatePresent,
			CreateGroup: true,
			SMB:         validators.Pointer(true),
			DeleteGroup: true,
		}
	},
	runUser,
)

// newSudoAPI reports whether the release takes sudo_commands and sudo_commands_nopasswd
// instead of the sudo, sudo_nopasswd and sudo_commands trio. The change landed on three
// branches separately.
func newSudoAPI(v *middleware.Version) bool {
	return (v.Name == "TrueNAS" && v.Type == middleware.ProductScale && v.Between("12.12.0", "13.0.0")) ||
		v.Between("22.12.1", "23.0.0") ||
		v.AtLeast("23.10.0")
}

// The sudo fields to send to a release with the old API
type oldSudo struct {
	sudo     *bool
	nopasswd *bool
	commands []string
}

// Translates sudo_commands/sudo_commands_nopasswd (or the deprecated flags) for the old API.
// "ALL" means an empty command list.
func (p *UserParams) oldSudo() oldSudo {
	if p.Sudo != nil || p.SudoNopasswd != nil {
		return oldSudo{sudo: p.Sudo, nopasswd: p.SudoNopasswd, commands: p.SudoCommands}
	}

	allOrList := func(cmds []string) []string {
		if slices.Contains(cmds, "ALL") {
			return []string{}
		}
		return cmds
	}

	switch {
	case p.SudoCommands == nil && p.SudoCommandsNopasswd != nil:
		return oldSudo{validators.TruePtr, validators.TruePtr, allOrList(p.SudoCommandsNopasswd)}
	case p.SudoCommands != nil && p.SudoCommandsNopasswd == nil:
		return oldSudo{validators.TruePtr, validators.FalsePtr, allOrList(p.SudoCommands)}
	}

	return oldSudo{}
}

// joinKeys renders keys as an authorized_keys file
func joinKeys(keys []string) string {
	return strings.Join(keys, "\n") + "\n"
}

// groupIDs resolves group names to middleware group ids
func groupIDs(ctx context.Context, mw middleware.Client, names []string) ([]int, error) {
	if len(names) == 0 {
		return []int{}, nil
	}

	v, err := mw.Call(ctx, "group.query", middleware.Filter("group", "in", names))

	if err != nil {
		return nil, fmt.Errorf("error looking up groups %v: %w", names, err)
	}

	var groups []types.Group

	if err := middleware.Decode(v, &groups); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}

	return ids, nil
}

func primaryGroup(ctx context.Context, mw middleware.Client, name string) (int, error) {
	g, err := queryOne[types.Group](ctx, mw, "group.query", middleware.Eq("group", name))

	if err != nil {
		return 0, fmt.Errorf("error looking up group %s: %w", name, err)
	}

	if g == nil {
		return 0, fmt.Errorf("no such group: %s", name)
	}

	return g.ID, nil
}

func runUser(ctx context.Context, env *Env, p *UserParams) (*types.Result, error) {
	res := types.NewResult()

	v, err := middleware.GetVersion(ctx, env.MW)

	if err != nil {
		return nil, fmt.Errorf("error getting TrueNAS version: %w", err)
	}

	newAPI := newSudoAPI(v)

	if newAPI && (p.Sudo != nil || p.SudoNopasswd != nil) {
		return nil, fmt.Errorf("sudo and sudo_nopasswd are not supported on %s; use sudo_commands and sudo_commands_nopasswd", v)
	}

	if !newAPI && p.SudoCommands != nil && p.SudoCommandsNopasswd != nil {
		return nil, fmt.Errorf("sudo_commands and sudo_commands_nopasswd are mutually exclusive on %s", v)
	}

	if p.Sudo != nil || p.SudoNopasswd != nil {
		res.Warn("The 'sudo' and 'sudo_nopasswd' options are deprecated. Please use 'sudo_commands' and 'sudo_commands_nopasswd' instead.")
	}

	user, err := queryOne[types.User](ctx, env.MW, "user.query", middleware.Eq("username", p.Name))

	if err != nil {
		return nil, fmt.Errorf("error looking up user %s: %w", p.Name, err)
	}

	switch {
	case user == nil && p.State == StateAbsent:
		return res, nil
	case user == nil:
		return createUser(ctx, env, p, newAPI, res)
	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted user %s", p.Name)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "user.delete", user.ID, map[string]any{"delete_group": p.DeleteGroup}); err != nil {
			return nil, fmt.Errorf("error deleting user %s: %w", p.Name, err)
		}

		res.Msg = fmt.Sprintf("Deleted user %s", p.Name)
		return res, nil
	}

	return updateUser(ctx, env, p, newAPI, user, res)
}

func createUser(ctx context.Context, env *Env, p *UserParams, newAPI bool, res *types.Result) (*types.Result, error) {
	d := newDiff()
	d.Set("username", p.Name)
	d.Set("password", validators.Deref(p.Password))
	add(d, "password_disabled", p.PasswordDisabled)
	d.Set("full_name", validators.Deref(p.Comment))
	add(d, "email", p.Email)
	add(d, "uid", p.UID)
	add(d, "smb", p.SMB)

	if newAPI {
		if p.SudoCommands != nil {
			d.Set("sudo_commands", p.SudoCommands)
		}
		if p.SudoCommandsNopasswd != nil {
			d.Set("sudo_commands_nopasswd", p.SudoCommandsNopasswd)
		}
	} else {
		s := p.oldSudo()
		add(d, "sudo", s.sudo)
		add(d, "sudo_nopasswd", s.nopasswd)
		if s.commands != nil {
			d.Set("sudo_commands", s.commands)
		}
	}

	add(d, "shell", p.Shell)

	// middlewared chowns a new home directory before it assigns a uid, so pick one
	if p.Home != nil {
		if p.UID == nil {
			uid, err := env.MW.Call(ctx, "user.get_next_uid")

			if err != nil {
				return nil, fmt.Errorf("error getting next available UID: %w", err)
			}

			d.Set("uid", uid)
		}

		d.Set("home", *p.Home)
	}

	if p.SSHAuthorizedKeys != nil {
		d.Set("sshpubkey", joinKeys(p.SSHAuthorizedKeys))
	}

	switch {
	case p.CreateGroup:
		d.Set("group_create", true)
	case p.Group == nil:
		return nil, errors.New("group is required to create a user when create_group is false")
	default:
		id, err := primaryGroup(ctx, env.MW, *p.Group)

		if err != nil {
			return nil, err
		}

		d.Set("group", id)
	}

	if len(p.Groups) > 0 {
		ids, err := groupIDs(ctx, env.MW, p.Groups)

		if err != nil {
			return nil, err
		}

		d.Set("groups", ids)
	}

	res.Changed = true

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have created user %s with %s", p.Name, d.Redacted("password"))
		return res, nil
	}

	id, err := env.MW.Call(ctx, "user.create", d)

	if err != nil {
		return nil, fmt.Errorf("error creating user %s: %w", p.Name, err)
	}

	res.Msg = fmt.Sprintf("Created user %s", p.Name)
	res.Set("user_id", id)

	return res, nil
}

func updateUser(ctx context.Context, env *Env, p *UserParams, newAPI bool, user *types.User, res *types.Result) (*types.Result, error) {
	d := newDiff()

	// The current password can't be read back, so it is never compared
	update(d, "uid", p.UID, user.UID)
	update(d, "password_disabled", p.PasswordDisabled, user.PasswordDisabled)
	update(d, "full_name", p.Comment, user.FullName)
	updatePtr(d, "email", p.Email, user.Email)
	update(d, "shell", p.Shell, user.Shell)
	update(d, "smb", p.SMB, user.SMB)

	// home may name the parent of the home directory
	if p.Home != nil && user.Home != *p.Home && user.Home != *p.Home+"/"+user.Username {
		d.Set("home", *p.Home)
	}

	if newAPI {
		updateSet(d, "sudo_commands", p.SudoCommands, user.SudoCommands)
		updateSet(d, "sudo_commands_nopasswd", p.SudoCommandsNopasswd, user.SudoCommandsNopasswd)
	} else {
		s := p.oldSudo()
		update(d, "sudo", s.sudo, user.Sudo)
		update(d, "sudo_nopasswd", s.nopasswd, user.SudoNopasswd)
		updateSet(d, "sudo_commands", s.commands, user.SudoCommands)
	}

	if p.SSHAuthorizedKeys != nil {
		var have []string
		if user.SSHPubKey != nil && strings.TrimSpace(*user.SSHPubKey) != "" {
			have = strings.Split(strings.TrimRight(*user.SSHPubKey, "\n"), "\n")
		}

		want := make([]string, 0, len(p.SSHAuthorizedKeys))
		for _, k := range p.SSHAuthorizedKeys {
			want = append(want, strings.TrimRight(k, " \t\r\n"))
		}

		haveSet := mapset.NewSet(have...)
		wantSet := mapset.NewSet(want...)

		if p.AppendPubkeys {
			if !wantSet.IsSubset(haveSet) {
				keys := slices.Clone(have)
				for _, k := range want {
					if !haveSet.Contains(k) {
						keys = append(keys, k)
						haveSet.Add(k)
					}
				}
				d.Set("sshpubkey", joinKeys(keys))
			}
		} else if !haveSet.Equal(wantSet) {
			d.Set("sshpubkey", joinKeys(p.SSHAuthorizedKeys))
		}
	}

	if p.Group != nil && user.Group.Group != *p.Group {
		id, err := primaryGroup(ctx, env.MW, *p.Group)

		if err != nil {
			return nil, err
		}

		d.Set("group", id)
	}

	if p.Groups != nil {
		ids, err := groupIDs(ctx, env.MW, p.Groups)

		if err != nil {
			return nil, err
		}

		final := mapset.NewSet(ids...)
		have := mapset.NewSet(user.Groups...)

		if p.Append {
			final = final.Union(have)
		}

		if !final.Equal(have) {
			groups := final.ToSlice()
			sort.Ints(groups)
			d.Set("groups", groups)
		}
	}

	if d.Empty() {
		return res, nil
	}

	res.Changed = true
	res.Set("invocation", d)

	if env.CheckMode {
		res.Msg = fmt.Sprintf("Would have updated user %s: %s", p.Name, d)
		return res, nil
	}

	if _, err := env.MW.Call(ctx, "user.update", user.ID, d); err != nil {
		return nil, fmt.Errorf("error updating user %s with %s: %w", p.Name, d, err)
	}

	res.Msg = fmt.Sprintf("Updated user %s", p.Name)

	return res, nil
}
