package changelogs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tnctl/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFragment(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fragments")
	cfg := DefaultConfig()

	path, err := NewFragment(dir, "42-user-sudo", constants.CategoryBugfixes, "user - fix sudo on 24.04.", cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "42-user-sudo.yml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "---\nbugfixes:\n    - user - fix sudo on 24.04.\n", string(data))

	_, err = NewFragment(dir, "42-user-sudo", constants.CategoryBugfixes, "again", cfg)
	assert.Error(t, err, "existing fragments must not be overwritten")

	_, err = NewFragment(dir, "x", "frobnications", "text", cfg)
	assert.Error(t, err)

	_, err = NewFragment(dir, "y", constants.CategoryTrivial, "   ", cfg)
	assert.Error(t, err)

	_, err = NewFragment(dir, "../escape", constants.CategoryTrivial, "text", cfg)
	assert.Error(t, err)
}

func TestLintFragments(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("minor_changes:\n  - fine\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("sprockets:\n  - nope\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yml"), []byte("bugfixes: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	problems, err := LintFragments(dir, DefaultConfig())
	require.NoError(t, err)

	out := messages(problems)
	assert.Contains(t, out, `b.yaml: unknown category "sprockets"`)
	assert.Contains(t, out, `c.yml: category "bugfixes" must not be empty`)
	assert.NotContains(t, out, "a.yml")
	assert.NotContains(t, out, "README")

	frags, _, err := LoadFragments(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Nil(t, frags)
}

func TestReleaseMergesFragments(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-summary.yml"), []byte("release_summary: Bugfix release.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-group.yml"), []byte("bugfixes:\n  - group - fix gid.\nminor_changes:\n  - group - add smb flag.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "30-user.yml"), []byte("bugfixes:\n  - user - fix home.\n"), 0o644))

	frags, problems, err := LoadFragments(dir)
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Len(t, frags, 3)

	path := writeFile(t, "changelog.yaml", validManifest)
	m, _, err := Load(path)
	require.NoError(t, err)

	cfg := DefaultConfig()

	r, err := Release(m, cfg, "1.2.0", "2023-03-01", frags)
	require.NoError(t, err)

	assert.Equal(t, "Bugfix release.", r.Changes.ReleaseSummary)
	assert.Equal(t, []string{"10-summary.yml", "20-group.yml", "30-user.yml"}, r.Fragments)

	bugfixes, _ := r.Changes.Categories.Get(constants.CategoryBugfixes)
	assert.Equal(t, []string{"group - fix gid.", "user - fix home."}, bugfixes)

	// Config order puts minor_changes before bugfixes
	assert.Equal(t, constants.CategoryMinorChanges, r.Changes.Categories.Oldest().Key)

	require.NoError(t, Save(path, m))

	reloaded, problems, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, problems, messages(problems))
	assert.Empty(t, Lint(path, reloaded, cfg))

	var keys []string
	for pair := reloaded.Releases.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"1.0.0", "1.1.0", "1.2.0"}, keys)

	again, _ := reloaded.Releases.Get("1.2.0")
	assert.Equal(t, "2023-03-01", again.ReleaseDate)
	assert.Equal(t, r.Fragments, again.Fragments)

	bugfixes, _ = again.Changes.Categories.Get(constants.CategoryBugfixes)
	assert.Equal(t, []string{"group - fix gid.", "user - fix home."}, bugfixes)

	first, _ := reloaded.Releases.Get("1.0.0")
	assert.Equal(t, "Manage users", first.Modules[0].Description)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ancestor: null\n")
	assert.Contains(t, string(data), "release_date: '2023-03-01'")

	require.NoError(t, RemoveFragments(dir, frags))
	left, _, err := LoadFragments(dir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReleaseRejects(t *testing.T) {
	m, _, err := Parse("x.yaml", []byte(validManifest))
	require.NoError(t, err)

	cfg := DefaultConfig()

	_, err = Release(m, cfg, "1.1.0", "", nil)
	assert.ErrorContains(t, err, "already exists")

	_, err = Release(m, cfg, "1.0.5", "", nil)
	assert.ErrorContains(t, err, "not newer")

	_, err = Release(m, cfg, "v2", "", nil)
	assert.ErrorContains(t, err, "not a valid semantic version")

	_, err = Release(m, cfg, "2.0.0", "01/02/2024", nil)
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	assert.Equal(t, 2, m.Releases.Len())

	r, err := Release(m, cfg, "2.0.0", "", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format(constants.DateLayout), r.ReleaseDate)
	assert.Nil(t, r.Changes)
	assert.Equal(t, "2.0.0", Latest(m).Original())
}
