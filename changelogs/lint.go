package changelogs

import (
	"fmt"
	"sort"

	"tnctl/constants"
	"tnctl/types"
)

// Lint checks a parsed manifest against the categories cfg recognises
func Lint(path string, m *types.Changelog, cfg *types.ChangelogConfig) []types.Problem {
	var problems []types.Problem

	add := func(format string, args ...any) {
		problems = append(problems, types.Problem{
			Path:    path,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if m.Ancestor != nil && validate.Var(*m.Ancestor, "semver") != nil {
		add("ancestor %q is not a valid semantic version", *m.Ancestor)
	}

	known := Categories(cfg)

	for pair := m.Releases.Oldest(); pair != nil; pair = pair.Next() {
		version, r := pair.Key, pair.Value

		if validate.Var(version, "semver") != nil {
			add("version %q is not a valid semantic version", version)
		}

		if r.ReleaseDate != "" && validate.Var(r.ReleaseDate, "datetime="+constants.DateLayout) != nil {
			add("release %s: release_date %q is not a valid date (YYYY-MM-DD)", version, r.ReleaseDate)
		}

		if r.Changes != nil {
			for c := r.Changes.Categories.Oldest(); c != nil; c = c.Next() {
				if !known.Contains(c.Key) {
					add("release %s: unknown category %q", version, c.Key)
				}

				if len(c.Value) == 0 {
					add("release %s: category %q must not be empty", version, c.Key)
				}

				for i, s := range c.Value {
					if s == "" {
						add("release %s: category %q entry %d is empty", version, c.Key, i+1)
					}
				}
			}
		}

		problems = append(problems, lintEntries(path, version, "modules", r.Modules)...)

		for _, group := range []map[string][]types.PluginEntry{r.Plugins, r.Objects} {
			keys := make([]string, 0, len(group))
			for k := range group {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				problems = append(problems, lintEntries(path, version, k, group[k])...)
			}
		}
	}

	return problems
}

func lintEntries(path, version, kind string, entries []types.PluginEntry) []types.Problem {
	var problems []types.Problem

	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			problems = append(problems, types.Problem{
				Path:    path,
				Message: fmt.Sprintf("release %s: %s entry %d needs a name and a description", version, kind, i+1),
			})
		}
	}

	return problems
}

// LintFile loads path and returns every problem found, structural and semantic
func LintFile(path string, cfg *types.ChangelogConfig) ([]types.Problem, error) {
	m, problems, err := Load(path)

	if err != nil {
		return nil, err
	}

	return append(problems, Lint(path, m, cfg)...), nil
}
