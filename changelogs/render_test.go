package changelogs

import (
	"strings"
	"testing"

	"tnctl/constants"
	"tnctl/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderFixture(t *testing.T) (*types.Changelog, *types.ChangelogConfig) {
	t.Helper()

	m, problems, err := Parse("changelog.yaml", []byte(validManifest))
	require.NoError(t, err)
	require.Empty(t, problems)

	// Empty categories are dropped from the output
	r, _ := m.Releases.Get("1.1.0")
	r.Changes.Categories.Set(constants.CategoryKnownIssues, []string{})

	m.Releases.Set("1.10.0", &types.Release{
		Version:     "1.10.0",
		ReleaseDate: "2023-06-01",
		Changes: func() *types.ChangeSet {
			cs := types.NewChangeSet()
			cs.Categories.Set(constants.CategoryMajorChanges, []string{"Use the websocket API when available.\nFalls back to midclt."})
			return cs
		}(),
	})

	cfg := DefaultConfig()
	cfg.Prefix = "arensb.truenas"

	return m, cfg
}

func rstHeading(s, c string) string {
	return s + "\n" + strings.Repeat(c, len(s)) + "\n\n"
}

func TestSortedVersions(t *testing.T) {
	m, _ := renderFixture(t)
	m.Releases.Set("dev", &types.Release{Version: "dev"})
	m.Releases.Set("v1.1", &types.Release{Version: "v1.1"})

	// loose versions are not versions either
	assert.Equal(t, []string{"1.10.0", "1.1.0", "1.0.0", "v1.1", "dev"}, SortedVersions(m))
}

func TestRenderSkipsTrivial(t *testing.T) {
	m, cfg := renderFixture(t)

	r, _ := m.Releases.Get("1.1.0")
	r.Changes.Categories.Set(constants.CategoryTrivial, []string{"Reformat the docs."})

	for _, out := range []string{RenderRST(m, cfg), RenderMarkdown(m, cfg)} {
		assert.NotContains(t, out, "Trivial Changes")
		assert.NotContains(t, out, "Reformat the docs.")
		assert.Contains(t, out, "Bugfixes")
	}
}

func TestRenderRST(t *testing.T) {
	m, cfg := renderFixture(t)

	out := RenderRST(m, cfg)

	bar := strings.Repeat("=", len("TrueNAS Collection Release Notes"))
	assert.True(t, strings.HasPrefix(out, bar+"\nTrueNAS Collection Release Notes\n"+bar+"\n"))
	assert.Contains(t, out, ".. contents:: Topics")

	newest := strings.Index(out, rstHeading("v1.10.0", "="))
	middle := strings.Index(out, rstHeading("v1.1.0", "="))
	oldest := strings.Index(out, rstHeading("v1.0.0", "="))

	require.NotEqual(t, -1, newest)
	assert.Less(t, newest, middle)
	assert.Less(t, middle, oldest)

	assert.Contains(t, out, "- Use the websocket API when available.\n  Falls back to midclt.\n")
	assert.Contains(t, out, rstHeading("New Modules", "-")+"- arensb.truenas.user - Manage users\n")
	assert.Contains(t, out, rstHeading("New Plugins", "-")+rstHeading("Become", "~")+"- arensb.truenas.midclt - Run commands through midclt\n")
	assert.NotContains(t, out, "Known Issues")

	summary := strings.Index(out, "Release Summary\n")
	minor := strings.Index(out, "Minor Changes\n")
	assert.Less(t, summary, minor)
	assert.Contains(t, out, rstHeading("Release Summary", "-")+"First release.\n")
}

func TestRenderMarkdown(t *testing.T) {
	m, cfg := renderFixture(t)

	out := RenderMarkdown(m, cfg)

	assert.True(t, strings.HasPrefix(out, "# TrueNAS Collection Release Notes\n"))
	assert.NotContains(t, out, ".. contents::")
	assert.Contains(t, out, "## v1.10.0\n")
	assert.Contains(t, out, "### Bugfixes\n\n* group - do not send allow_duplicate_gid on SCALE.\n")
	assert.Contains(t, out, "#### Become\n")
	assert.True(t, strings.HasSuffix(out, "* arensb.truenas.user - Manage users\n"))
}
