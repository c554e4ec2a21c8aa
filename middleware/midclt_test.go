package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type fakeRunner struct {
	out  string
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return []byte(f.out), f.err
}

func TestMidcltCallEncodesArguments(t *testing.T) {
	r := &fakeRunner{out: `[{"id": 1, "username": "bob"}]` + "\n"}
	m := NewMidcltWithRunner(r, nil)

	opts := orderedmap.New[string, any]()
	opts.Set("get", true)
	opts.Set("limit", 1)

	v, err := m.Call(context.Background(), "user.query", Eq("username", "bob"), opts)
	require.NoError(t, err)

	assert.Equal(t, "midclt", r.name)
	assert.Equal(t, []string{"call", "user.query", `[["username","=","bob"]]`, `{"get":true,"limit":1}`}, r.args)

	users, ok := v.([]any)
	require.True(t, ok)
	assert.Equal(t, "bob", users[0].(map[string]any)["username"])
}

func TestMidcltPythonBooleans(t *testing.T) {
	for out, want := range map[string]bool{"True\n": true, "False": false, "true": true} {
		m := NewMidcltWithRunner(&fakeRunner{out: out}, nil)

		v, err := m.Call(context.Background(), "service.started", "ssh")
		require.NoError(t, err)
		assert.Equal(t, want, v, out)
	}
}

func TestMidcltErrors(t *testing.T) {
	m := NewMidcltWithRunner(&fakeRunner{
		out: "[ENOMETHOD] Method 'frob' not found in 'system'\n",
		err: &ExitError{Status: 1},
	}, nil)

	_, err := m.Call(context.Background(), "system.frob")

	var notFound *MethodNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "system.frob", notFound.Method)
	assert.Contains(t, err.Error(), "Method system.frob Not Found")

	m = NewMidcltWithRunner(&fakeRunner{
		out: "[EINVAL] user_create.username: This field is required\n",
		err: &ExitError{Status: 1},
	}, nil)

	_, err = m.Call(context.Background(), "user.create", map[string]any{})

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "EINVAL", callErr.Errname)
	assert.Equal(t, "user_create.username: This field is required", callErr.Reason)
	assert.Equal(t, 1, callErr.ExitStatus)

	m = NewMidcltWithRunner(&fakeRunner{out: "Traceback...", err: &ExitError{Status: 2}}, nil)
	_, err = m.Call(context.Background(), "user.create")
	require.True(t, errors.As(err, &callErr))
	assert.Empty(t, callErr.Errname)
	assert.Equal(t, 2, callErr.ExitStatus)

	m = NewMidcltWithRunner(&fakeRunner{out: "not json"}, nil)
	_, err = m.Call(context.Background(), "user.query")
	assert.ErrorContains(t, err, "can't parse midclt output")

	m = NewMidcltWithRunner(&fakeRunner{err: errors.New("fork failed")}, nil)
	_, err = m.Call(context.Background(), "user.query")
	assert.ErrorContains(t, err, "fork failed")
}

func TestMidcltJob(t *testing.T) {
	r := &fakeRunner{out: "Status: Scrubbing\n[10%] Started\n[100%] Done\n{\"pool\": \"tank\", \"syslog\": true}\n"}
	m := NewMidcltWithRunner(r, nil)

	v, err := m.Job(context.Background(), "systemdataset.update", map[string]any{"pool": "tank"})
	require.NoError(t, err)

	assert.Equal(t, []string{"call", "-job", "-jp", "description", "systemdataset.update", `{"pool":"tank"}`}, r.args)
	assert.Equal(t, map[string]any{"pool": "tank", "syslog": true}, v)

	m = NewMidcltWithRunner(&fakeRunner{out: "\n"}, nil)
	_, err = m.Job(context.Background(), "systemdataset.update")
	assert.Error(t, err)
}

func TestMidcltCallString(t *testing.T) {
	m := NewMidcltWithRunner(&fakeRunner{out: "TrueNAS-13.0-U5\n"}, nil)

	s, err := m.CallString(context.Background(), "system.version")
	require.NoError(t, err)
	assert.Equal(t, "TrueNAS-13.0-U5", s)
}
