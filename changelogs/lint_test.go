package changelogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tnctl/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `---
ancestor: null
releases:
  1.0.0:
    changes:
      release_summary: First release.
      minor_changes:
        - Added the user module.
    modules:
      - name: user
        description: Manage users
        namespace: ''
    release_date: '2023-01-10'
  1.1.0:
    changes:
      bugfixes:
        - group - do not send allow_duplicate_gid on SCALE.
    plugins:
      become:
        - name: midclt
          description: Run commands through midclt
    release_date: 2023-02-01
`

const brokenManifest = `---
ancestor: null
releases:
  1.0.0:
    release_date: '2023-13-40'
    changes:
      frobnications:
        - Nope.
      bugfixes: []
      minor_changes:
        - 42
  1.0.0:
    release_date: '2023-01-01'
  banana:
    modules:
      - name: user
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func messages(problems []types.Problem) string {
	var sb strings.Builder
	for _, p := range problems {
		sb.WriteString(p.String() + "\n")
	}
	return sb.String()
}

func TestLintValidManifest(t *testing.T) {
	path := writeFile(t, "changelog.yaml", validManifest)

	problems, err := LintFile(path, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, problems, messages(problems))

	m, _, err := Load(path)
	require.NoError(t, err)

	assert.Nil(t, m.Ancestor)
	assert.Equal(t, 2, m.Releases.Len())

	r, ok := m.Releases.Get("1.1.0")
	require.True(t, ok)
	assert.Equal(t, "2023-02-01", r.ReleaseDate)
	assert.Equal(t, "midclt", r.Plugins["become"][0].Name)

	first := m.Releases.Oldest()
	assert.Equal(t, "1.0.0", first.Key)
	assert.Equal(t, "First release.", first.Value.Changes.ReleaseSummary)
}

func TestLintReportsEveryProblem(t *testing.T) {
	path := writeFile(t, "changelog.yaml", brokenManifest)

	problems, err := LintFile(path, DefaultConfig())
	require.NoError(t, err)

	out := messages(problems)

	for _, want := range []string{
		`duplicate version "1.0.0" (first defined on line 4)`,
		`release_date "2023-13-40" is not a valid date`,
		`unknown category "frobnications"`,
		`category "bugfixes" must not be empty`,
		`minor_changes: entry 1 is not a string`,
		`version "banana" is not a valid semantic version`,
		`release banana: modules entry 1 needs a name and a description`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestLoadStructuralProblems(t *testing.T) {
	_, problems, err := Parse("x.yaml", []byte("- just\n- a list\n"))
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "top level must be a mapping", problems[0].Message)

	_, problems, err = Parse("x.yaml", []byte("ancestor: 1.0.0\nextra: true\n"))
	require.NoError(t, err)

	out := messages(problems)
	assert.Contains(t, out, `unknown top-level key "extra"`)
	assert.Contains(t, out, "missing releases")

	_, problems, err = Parse("x.yaml", []byte(""))
	require.NoError(t, err)
	assert.Contains(t, messages(problems), "file is empty")

	_, _, err = Parse("x.yaml", []byte("releases: [\n"))
	assert.Error(t, err)
}

func TestLintAncestor(t *testing.T) {
	m, problems, err := Parse("x.yaml", []byte("ancestor: not-a-version\nreleases: {}\n"))
	require.NoError(t, err)
	require.Empty(t, problems)

	problems = Lint("x.yaml", m, DefaultConfig())
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, `ancestor "not-a-version"`)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `---
title: Arensb TrueNAS
prefix: arensb.truenas
sections:
  - [major_changes, Major Changes]
  - [bugfixes, Bugfixes]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Arensb TrueNAS", cfg.Title)
	assert.Equal(t, "fragments", cfg.FragmentsDir)
	assert.Len(t, cfg.Sections, 2)
	assert.True(t, Categories(cfg).Contains("bugfixes"))
	assert.False(t, Categories(cfg).Contains("trivial"))

	bad := writeFile(t, "config.yaml", "title: ''\n")
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestLoadConfigOrDefault(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfigOrDefault(writeFile(t, "config.yaml", "sections: []\n"))
	assert.Error(t, err)
}
