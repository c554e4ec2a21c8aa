package modules_test

import (
	"context"
	"testing"

	"tnctl/middleware/mwtest"
	"tnctl/modules"
	"tnctl/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, fake *mwtest.Fake, check bool, name string, params map[string]any) *types.Result {
	t.Helper()

	res, err := modules.Run(context.Background(), &modules.Env{MW: fake, CheckMode: check}, name, params)
	require.NoError(t, err)

	return res
}

func runErr(fake *mwtest.Fake, name string, params map[string]any) error {
	_, err := modules.Run(context.Background(), &modules.Env{MW: fake}, name, params)
	return err
}

// lastArgs returns the JSON-encoded arguments of the most recent call to method
func lastArgs(t *testing.T, fake *mwtest.Fake, method string) string {
	t.Helper()

	c, ok := fake.Last(method)
	require.True(t, ok, "%s was not called; calls: %v", method, fake.Methods())

	return c.Args
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{
		"dataset", "facts", "filesystem", "group", "hostname", "initscript", "mail", "nfs",
		"pool_scrub_task", "pool_snapshot_task", "service", "sharing_nfs", "sharing_smb",
		"smart", "smart_test_task", "systemdataset", "user",
	}, modules.Names())

	_, ok := modules.Get("jail")
	assert.False(t, ok)

	err := runErr(mwtest.New(), "jail", nil)
	assert.ErrorContains(t, err, "no such module: jail")
}

func TestDecodeResolvesAliases(t *testing.T) {
	m, ok := modules.Get("user")
	require.True(t, ok)

	p, err := m.Decode(map[string]any{"user": "bob", "pubkeys": []any{"ssh-ed25519 AAAA"}})
	require.NoError(t, err)

	up := p.(*modules.UserParams)
	assert.Equal(t, "bob", up.Name)
	assert.Equal(t, []string{"ssh-ed25519 AAAA"}, up.SSHAuthorizedKeys)

	// defaults
	assert.Equal(t, modules.StatePresent, up.State)
	assert.True(t, up.CreateGroup)
	assert.True(t, *up.SMB)

	_, err = m.Decode(map[string]any{"user": "bob", "name": "bob"})
	assert.ErrorContains(t, err, "more than once")
}

func TestDecodeRejectsBadParams(t *testing.T) {
	err := runErr(mwtest.New(), "group", map[string]any{"name": "staff", "colour": "red"})
	assert.ErrorContains(t, err, "colour")

	err = runErr(mwtest.New(), "group", map[string]any{"name": "staff", "state": "gone"})
	assert.ErrorContains(t, err, "invalid parameters")

	err = runErr(mwtest.New(), "group", map[string]any{"name": "staff", "non_unique": true})
	assert.ErrorContains(t, err, "non_unique requires gid")

	err = runErr(mwtest.New(), "service", map[string]any{"name": "ssh"})
	assert.ErrorContains(t, err, "one of state or enabled")

	// Strings from the command line are converted
	m, _ := modules.Get("group")
	p, err := m.Decode(map[string]any{"name": "staff", "gid": "3000"})
	require.NoError(t, err)
	assert.Equal(t, 3000, *p.(*modules.GroupParams).GID)
}

func sshService(state string, enable bool) map[string]any {
	return map[string]any{"id": 1, "service": "ssh", "enable": enable, "state": state, "pids": []int{}}
}

func TestServiceStartsAndEnables(t *testing.T) {
	fake := mwtest.New().
		Return("service.query", []any{sshService("STOPPED", false)}).
		Return("service.start", true).
		Return("service.update", 1)

	res := run(t, fake, false, "service", map[string]any{"name": "ssh", "state": "started", "enabled": true})

	assert.True(t, res.Changed)
	assert.Equal(t, "service started; service enabled", res.Msg)
	assert.Equal(t, []string{"service.query", "service.start", "service.update"}, fake.Methods())
	assert.Equal(t, `["ssh",{"enable":true}]`, lastArgs(t, fake, "service.update"))
	assert.Equal(t, `[[["service","=","ssh"]]]`, lastArgs(t, fake, "service.query"))
}

func TestServiceIsIdempotent(t *testing.T) {
	fake := mwtest.New().Return("service.query", []any{sshService("RUNNING", true)})

	res := run(t, fake, false, "service", map[string]any{"name": "ssh", "state": "started", "enabled": true})

	assert.False(t, res.Changed)
	assert.Empty(t, fake.Mutations())
}

func TestServiceRestartAlwaysRuns(t *testing.T) {
	fake := mwtest.New().
		Return("service.query", []any{sshService("RUNNING", true)}).
		Return("service.restart", true)

	res := run(t, fake, false, "service", map[string]any{"name": "ssh", "state": "restarted"})

	assert.True(t, res.Changed)
	assert.Equal(t, "service restarted", res.Msg)
}

func TestServiceCheckMode(t *testing.T) {
	fake := mwtest.New().Return("service.query", []any{sshService("RUNNING", true)})

	res := run(t, fake, true, "service", map[string]any{"name": "ssh", "state": "stopped", "enabled": false})

	assert.True(t, res.Changed)
	assert.Equal(t, "service stopped; service disabled", res.Msg)
	assert.Empty(t, fake.Mutations())
}

func TestServiceUnknown(t *testing.T) {
	fake := mwtest.New().Return("service.query", []any{})

	err := runErr(fake, "service", map[string]any{"name": "telnet", "state": "started"})
	assert.ErrorContains(t, err, "no such service: telnet")
}

func TestHostname(t *testing.T) {
	fake := mwtest.New().
		Return("network.configuration.config", map[string]any{"id": 1, "hostname": "nas", "domain": "local"}).
		Return("network.configuration.update", map[string]any{})

	res := run(t, fake, false, "hostname", map[string]any{"name": "nas"})
	assert.False(t, res.Changed)
	assert.Empty(t, fake.Mutations())

	res = run(t, fake, true, "hostname", map[string]any{"name": "nas2"})
	assert.True(t, res.Changed)
	assert.Equal(t, "Would have updated hostname to nas2.", res.Msg)
	assert.Empty(t, fake.Mutations())

	res = run(t, fake, false, "hostname", map[string]any{"name": "nas2"})
	assert.True(t, res.Changed)
	assert.Equal(t, `[{"hostname":"nas2"}]`, lastArgs(t, fake, "network.configuration.update"))
}

func TestSystemDatasetRunsJob(t *testing.T) {
	fake := mwtest.New().
		Return("systemdataset.config", map[string]any{"id": 1, "pool": "boot-pool", "syslog": true}).
		Return("systemdataset.update", map[string]any{"pool": "tank"})

	res := run(t, fake, false, "systemdataset", map[string]any{"pool": "tank", "syslog": true})

	assert.True(t, res.Changed)
	assert.Equal(t, "Updated", res.Msg)

	c, ok := fake.Last("systemdataset.update")
	require.True(t, ok)
	assert.True(t, c.Job)
	assert.Equal(t, `[{"pool":"tank"}]`, c.Args)
}

func TestMailHidesSecrets(t *testing.T) {
	fake := mwtest.New().Return("mail.config", map[string]any{
		"id": 1, "fromemail": "root@nas.local", "fromname": "", "outgoingserver": "smtp.example.com",
		"port": 25, "security": "PLAIN", "smtp": true, "user": "root", "pass": nil, "oauth": nil,
	})

	res := run(t, fake, true, "mail", map[string]any{
		"from_email": "nas@example.com",
		"smtp_user":  "root",
		"password":   "hunter2",
	})

	assert.True(t, res.Changed)
	assert.Contains(t, res.Msg, `"fromemail":"nas@example.com"`)
	assert.Contains(t, res.Msg, `"pass":"********"`)
	assert.NotContains(t, res.Msg, "hunter2")
	assert.NotContains(t, res.Msg, `"user"`)
	assert.Empty(t, fake.Mutations())
}

func TestMailOAuth(t *testing.T) {
	fake := mwtest.New().
		Return("mail.config", map[string]any{
			"id": 1, "port": 587, "security": "TLS", "oauth": map[string]any{"client_id": "abc"},
		}).
		Return("mail.update", map[string]any{})

	res := run(t, fake, false, "mail", map[string]any{
		"port": 587, "security": "TLS", "oauth_id": "abc", "oauth_token": "refresh",
	})

	assert.True(t, res.Changed)
	assert.Equal(t, `[{"oauth":{"refresh_token":"refresh"}}]`, lastArgs(t, fake, "mail.update"))
}

func TestSmartPowerModeIsCaseInsensitive(t *testing.T) {
	fake := mwtest.New().
		Return("smart.config", map[string]any{"id": 1, "interval": 30, "powermode": "NEVER", "difference": 0, "informational": 0, "critical": 0}).
		Return("smart.update", map[string]any{})

	res := run(t, fake, false, "smart", map[string]any{"interval": 30, "power_mode": "never"})
	assert.False(t, res.Changed)
	assert.Empty(t, fake.Mutations())

	res = run(t, fake, false, "smart", map[string]any{"power_mode": "standby", "temp_crit": 60})
	assert.True(t, res.Changed)
	assert.Equal(t, `[{"powermode":"STANDBY","critical":60}]`, lastArgs(t, fake, "smart.update"))
}

func nfsConfig(extra map[string]any) map[string]any {
	cfg := map[string]any{
		"id": 1, "servers": 4, "udp": false, "allow_nonroot": false,
		"v4_krb": false, "v4_domain": "", "bindip": []string{"10.0.0.1", "10.0.0.2"},
		"mountd_port": nil, "rpcstatd_port": nil, "rpclockd_port": nil,
		"userd_manage_gids": false, "mountd_log": false, "statd_lockd_log": false,
	}

	for k, v := range extra {
		cfg[k] = v
	}

	return cfg
}

func TestNFSProtocolsAreSets(t *testing.T) {
	fake := mwtest.New().
		Return("nfs.config", nfsConfig(map[string]any{"protocols": []string{"NFSV4", "NFSV3"}})).
		Return("nfs.update", map[string]any{})

	res := run(t, fake, false, "nfs", map[string]any{
		"protocols": []any{"v3", "NFSv4"},
		"bindip":    []any{"10.0.0.2", "10.0.0.1"},
	})
	assert.False(t, res.Changed)
	assert.Empty(t, fake.Mutations())

	res = run(t, fake, false, "nfs", map[string]any{"protocols": []any{"nfsv3"}, "mountd_port": 618})
	assert.True(t, res.Changed)
	assert.Equal(t, `[{"protocols":["NFSV3"],"mountd_port":618}]`, lastArgs(t, fake, "nfs.update"))
}

func TestNFSLegacyV4Toggle(t *testing.T) {
	fake := mwtest.New().
		Return("nfs.config", nfsConfig(map[string]any{"v4": false})).
		Return("nfs.update", map[string]any{})

	// NFSv3 is always on when there's only a v4 toggle
	res := run(t, fake, false, "nfs", map[string]any{"protocols": []any{"V4"}})
	assert.True(t, res.Changed)
	assert.Equal(t, `[{"v4":true}]`, lastArgs(t, fake, "nfs.update"))

	res = run(t, fake, false, "nfs", map[string]any{"nfsv4": false})
	assert.False(t, res.Changed)
}

func TestNFSRejectsConflictingProtocolOptions(t *testing.T) {
	err := runErr(mwtest.New(), "nfs", map[string]any{"nfsv4": true, "protocols": []any{"v3"}})
	assert.ErrorContains(t, err, "mutually exclusive")

	err = runErr(mwtest.New(), "nfs", map[string]any{"protocols": []any{"v2"}})
	assert.ErrorContains(t, err, `unknown NFS protocol "v2"`)
}
