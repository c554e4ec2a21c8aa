package modules_test

import (
	"testing"

	"tnctl/middleware"
	"tnctl/middleware/mwtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCreateDropsDuplicateGIDOnNewReleases(t *testing.T) {
	for version, want := range map[string]string{
		"24.04.2": `[{"name":"staff","gid":3000,"allow_duplicate_gid":true}]`,
		"25.04.0": `[{"name":"staff","gid":3000}]`,
	} {
		fake := mwtest.New().
			Product("SCALE", version).
			Return("group.query", []any{}).
			Return("group.create", 42)

		res := run(t, fake, false, "group", map[string]any{"name": "staff", "gid": 3000, "non_unique": true})

		assert.True(t, res.Changed, version)
		assert.Equal(t, want, lastArgs(t, fake, "group.create"), version)

		id, _ := res.Data.Get("group_id")
		assert.EqualValues(t, 42, id)
	}
}

func TestGroupUpdateAndDelete(t *testing.T) {
	staff := map[string]any{"id": 7, "gid": 3000, "group": "staff", "builtin": false, "smb": false, "users": []int{}}

	fake := mwtest.New().
		Product("CORE", "13.0-U6").
		Return("group.query", []any{staff}).
		Return("group.update", 7).
		Return("group.delete", true)

	res := run(t, fake, false, "group", map[string]any{"name": "staff", "gid": 3000})
	assert.False(t, res.Changed)
	assert.Empty(t, fake.Mutations())

	res = run(t, fake, false, "group", map[string]any{"name": "staff", "gid": 3001, "smb": true})
	assert.True(t, res.Changed)
	assert.Equal(t, `[7,{"gid":3001,"smb":true}]`, lastArgs(t, fake, "group.update"))

	res = run(t, fake, true, "group", map[string]any{"name": "staff", "state": "absent"})
	assert.True(t, res.Changed)
	assert.Equal(t, "Would have deleted group staff", res.Msg)
	assert.Len(t, fake.Mutations(), 1)

	run(t, fake, false, "group", map[string]any{"name": "staff", "state": "absent"})
	assert.Equal(t, `[7]`, lastArgs(t, fake, "group.delete"))
}

func TestGroupAbsentAndMissing(t *testing.T) {
	fake := mwtest.New().Product("SCALE", "24.10.0").Return("group.query", []any{})

	res := run(t, fake, false, "group", map[string]any{"name": "staff", "state": "absent"})

	assert.False(t, res.Changed)
	assert.Empty(t, fake.Mutations())
}

func bob() map[string]any {
	return map[string]any{
		"id": 5, "uid": 3001, "username": "bob", "full_name": "Bob", "email": nil,
		"shell": "/usr/bin/zsh", "home": "/mnt/tank/home/bob", "smb": true,
		"password_disabled": false, "sudo": false, "sudo_nopasswd": false,
		"sudo_commands": []string{}, "sudo_commands_nopasswd": []string{},
		"sshpubkey": "key1\nkey2\n",
		"group":     map[string]any{"id": 40, "bsdgrp_group": "bob", "bsdgrp_gid": 3001},
		"groups":    []int{10, 20},
	}
}

func TestUserCreate(t *testing.T) {
	fake := mwtest.New().
		Product("SCALE", "24.04.2").
		Return("user.query", []any{}).
		Return("user.get_next_uid", 3001).
		Return("user.create", 77)

	params := map[string]any{
		"name":                   "bob",
		"password":               "pw",
		"comment":                "Bob",
		"home":                   "/mnt/tank/home",
		"pubkeys":                []any{"ssh-ed25519 AAAA bob@laptop"},
		"sudo_commands_nopasswd": []any{"ALL"},
	}

	res := run(t, fake, true, "user", params)
	assert.True(t, res.Changed)
	assert.Contains(t, res.Msg, "Would have created user bob")
	assert.Contains(t, res.Msg, `"password":"********"`)
	assert.NotContains(t, res.Msg, `"pw"`)
	assert.Empty(t, fake.Mutations())

	res = run(t, fake, false, "user", params)
	assert.True(t, res.Changed)

	assert.JSONEq(t, `[{
		"username": "bob",
		"password": "pw",
		"full_name": "Bob",
		"smb": true,
		"sudo_commands_nopasswd": ["ALL"],
		"uid": 3001,
		"home": "/mnt/tank/home",
		"sshpubkey": "ssh-ed25519 AAAA bob@laptop\n",
		"group_create": true
	}]`, lastArgs(t, fake, "user.create"))

	id, _ := res.Data.Get("user_id")
	assert.EqualValues(t, 77, id)
}

func TestUserCreateWithExistingGroups(t *testing.T) {
	fake := mwtest.New().
		Product("SCALE", "24.04.2").
		Return("user.query", []any{}).
		On("group.query", func(args []any) (any, error) {
			filter := args[0].(middleware.Filters)
			if filter[0][1] == "in" {
				return []any{map[string]any{"id": 30, "group": "wheel"}, map[string]any{"id": 31, "group": "video"}}, nil
			}
			return []any{map[string]any{"id": 12, "group": "staff"}}, nil
		}).
		Return("user.create", 78)

	run(t, fake, false, "user", map[string]any{
		"name": "carol", "password_disabled": true, "create_group": false,
		"group": "staff", "groups": []any{"wheel", "video"},
	})

	assert.JSONEq(t, `[{
		"username": "carol",
		"password": "",
		"password_disabled": true,
		"full_name": "",
		"smb": true,
		"group": 12,
		"groups": [30, 31]
	}]`, lastArgs(t, fake, "user.create"))
}

func TestUserIsIdempotent(t *testing.T) {
	fake := mwtest.New().Product("SCALE", "24.04.2").Return("user.query", []any{bob()})

	res := run(t, fake, false, "user", map[string]any{
		"name":                "bob",
		"comment":             "Bob",
		"home":                "/mnt/tank/home",
		"ssh_authorized_keys": []any{"key2", "key1 "},
		"sudo_commands":       []any{},
	})

	assert.False(t, res.Changed, res.Msg)
	assert.Empty(t, fake.Mutations())
}

func TestUserAppendsKeysAndGroups(t *testing.T) {
	fake := mwtest.New().
		Product("SCALE", "24.04.2").
		Return("user.query", []any{bob()}).
		Return("group.query", []any{map[string]any{"id": 30, "group": "wheel"}}).
		Return("user.update", 5)

	res := run(t, fake, false, "user", map[string]any{
		"name":                "bob",
		"ssh_authorized_keys": []any{"key2", "key3"},
		"append_pubkeys":      true,
		"groups":              []any{"wheel"},
		"append":              true,
	})

	assert.True(t, res.Changed)
	assert.Equal(t, `[5,{"sshpubkey":"key1\nkey2\nkey3\n","groups":[10,20,30]}]`, lastArgs(t, fake, "user.update"))

	res = run(t, fake, false, "user", map[string]any{
		"name":                "bob",
		"ssh_authorized_keys": []any{"key3"},
		"groups":              []any{"wheel"},
	})

	assert.True(t, res.Changed)
	assert.Equal(t, `[5,{"sshpubkey":"key3\n","groups":[30]}]`, lastArgs(t, fake, "user.update"))
}

func TestUserOldSudoAPI(t *testing.T) {
	fake := mwtest.New().
		Product("CORE", "13.0-U6").
		Return("user.query", []any{bob()}).
		Return("user.update", 5)

	res := run(t, fake, false, "user", map[string]any{"name": "bob", "sudo_commands": []any{"ALL"}})

	assert.True(t, res.Changed)
	assert.Equal(t, `[5,{"sudo":true}]`, lastArgs(t, fake, "user.update"))

	res = run(t, fake, false, "user", map[string]any{"name": "bob", "sudo": true, "sudo_nopasswd": true})
	assert.True(t, res.Changed)
	assert.Equal(t, `[5,{"sudo":true,"sudo_nopasswd":true}]`, lastArgs(t, fake, "user.update"))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "deprecated")

	err := runErr(fake, "user", map[string]any{"name": "bob", "sudo_commands": []any{"ls"}, "sudo_commands_nopasswd": []any{"ALL"}})
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestUserNewSudoAPIRejectsOldOptions(t *testing.T) {
	fake := mwtest.New().Product("COMMUNITY_EDITION", "25.04.1").Return("user.query", []any{bob()})

	err := runErr(fake, "user", map[string]any{"name": "bob", "sudo": true})
	assert.ErrorContains(t, err, "not supported")
}

func TestUserDelete(t *testing.T) {
	fake := mwtest.New().
		Product("SCALE", "24.04.2").
		Return("user.query", []any{bob()}).
		Return("user.delete", 5)

	res := run(t, fake, false, "user", map[string]any{"name": "bob", "state": "absent", "delete_group": false})

	assert.True(t, res.Changed)
	assert.Equal(t, `[5,{"delete_group":false}]`, lastArgs(t, fake, "user.delete"))
}

func TestUserNeedsPassword(t *testing.T) {
	err := runErr(mwtest.New(), "user", map[string]any{"name": "bob", "password_disabled": false})
	assert.ErrorContains(t, err, "password is required")
}

func TestAccountsCheckModeMakesNoChanges(t *testing.T) {
	staff := map[string]any{"id": 7, "gid": 3000, "group": "staff", "builtin": false, "smb": false, "users": []int{}}

	for name, tc := range map[string]struct {
		fake   *mwtest.Fake
		module string
		params map[string]any
	}{
		"create group": {
			fake:   mwtest.New().Product("SCALE", "24.10.0").Return("group.query", []any{}),
			module: "group",
			params: map[string]any{"name": "staff", "gid": 3000},
		},
		"update group": {
			fake:   mwtest.New().Product("SCALE", "24.10.0").Return("group.query", []any{staff}),
			module: "group",
			params: map[string]any{"name": "staff", "gid": 3001, "smb": true},
		},
		"update user": {
			fake:   mwtest.New().Product("SCALE", "24.04.2").Return("user.query", []any{bob()}),
			module: "user",
			params: map[string]any{"name": "bob", "comment": "Robert", "ssh_authorized_keys": []any{"key3"}},
		},
		"delete user": {
			fake:   mwtest.New().Product("SCALE", "24.04.2").Return("user.query", []any{bob()}),
			module: "user",
			params: map[string]any{"name": "bob", "state": "absent"},
		},
	} {
		res := run(t, tc.fake, true, tc.module, tc.params)

		assert.True(t, res.Changed, name)
		assert.NotEmpty(t, res.Msg, name)
		assert.Empty(t, tc.fake.Mutations(), name)
	}
}
