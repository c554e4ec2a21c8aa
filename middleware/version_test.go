package middleware_test

import (
	"context"
	"testing"

	"tnctl/middleware"
	"tnctl/middleware/mwtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		suffix string
	}{
		{"13.0-U5", "13.0.0", "U5"},
		{"22.12.4.2", "22.12.4", ""},
		{"24.04", "24.4.0", ""},
		{"25.04.0", "25.4.0", ""},
		{"25.10-RC.1", "25.10.0", "RC.1"},
	}

	for _, c := range cases {
		v, suffix, err := middleware.ParseVersion(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, v.String(), c.in)
		assert.Equal(t, c.suffix, suffix, c.in)
	}

	_, _, err := middleware.ParseVersion("MASTER")
	assert.Error(t, err)
}

func TestGetVersionIsRemembered(t *testing.T) {
	fake := mwtest.New().Product("SCALE", "24.04.2")

	v, err := middleware.GetVersion(context.Background(), fake)
	require.NoError(t, err)

	assert.Equal(t, "TrueNAS", v.Name)
	assert.Equal(t, "SCALE", v.Type)
	assert.True(t, v.IsScaleLike())
	assert.True(t, v.AtLeast("23.10"))
	assert.False(t, v.AtLeast("25.04"))
	assert.True(t, v.Between("24.04", "24.10"))
	assert.Equal(t, "TrueNAS SCALE 24.4.2", v.String())

	again, err := middleware.GetVersion(context.Background(), fake)
	require.NoError(t, err)
	assert.Same(t, v, again)
	assert.Len(t, fake.Calls(), 3)

	middleware.ForgetVersion(fake)
	_, err = middleware.GetVersion(context.Background(), fake)
	require.NoError(t, err)
	assert.Len(t, fake.Calls(), 6)
}

func TestGetVersionPropagatesErrors(t *testing.T) {
	fake := mwtest.New()

	_, err := middleware.GetVersion(context.Background(), fake)

	var notFound *middleware.MethodNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFilters(t *testing.T) {
	f := middleware.Eq("pool_name", "tank").And("enabled", "=", true)
	assert.Equal(t, middleware.Filters{{"pool_name", "=", "tank"}, {"enabled", "=", true}}, f)
}
