package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"name=ssh",
		"enabled=true",
		"port=2222",
		"groups=[wheel, staff]",
		"comment=",
		"force",
		"note=a: b: c",
	})
	require.NoError(t, err)

	assert.Equal(t, "ssh", params["name"])
	assert.Equal(t, true, params["enabled"])
	assert.Equal(t, 2222, params["port"])
	assert.Equal(t, []any{"wheel", "staff"}, params["groups"])
	assert.Equal(t, "", params["comment"])
	assert.Equal(t, true, params["force"])
	assert.Equal(t, "a: b: c", params["note"])
}

func TestParseParamsErrors(t *testing.T) {
	_, err := parseParams([]string{"=x"})
	assert.ErrorContains(t, err, "want key=value")

	_, err = parseParams([]string{"a=1", "a=2"})
	assert.ErrorContains(t, err, "more than once")
}

func TestParseCallArgs(t *testing.T) {
	args, err := parseCallArgs([]string{`[["name", "=", "ssh"]]`, `{"get": true}`, `"x"`})
	require.NoError(t, err)

	assert.Equal(t, []any{
		[]any{[]any{"name", "=", "ssh"}},
		map[string]any{"get": true},
		"x",
	}, args)

	_, err = parseCallArgs([]string{"nope"})
	assert.ErrorContains(t, err, "argument 1")
}
