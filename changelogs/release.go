package changelogs

import (
	"fmt"
	"time"

	"tnctl/constants"
	"tnctl/types"

	"github.com/Masterminds/semver/v3"
)

// Latest returns the highest version in the manifest, skipping keys that aren't semver
func Latest(m *types.Changelog) *semver.Version {
	var latest *semver.Version

	for pair := m.Releases.Oldest(); pair != nil; pair = pair.Next() {
		v, err := semver.StrictNewVersion(pair.Key)

		if err != nil {
			continue
		}

		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	}

	return latest
}

// Release adds a new release built from frags to m. date may be empty for today.
func Release(m *types.Changelog, cfg *types.ChangelogConfig, version, date string, frags []Fragment) (*types.Release, error) {
	v, err := semver.StrictNewVersion(version)

	if err != nil {
		return nil, fmt.Errorf("version %q is not a valid semantic version: %w", version, err)
	}

	if _, ok := m.Releases.Get(version); ok {
		return nil, fmt.Errorf("version %s already exists", version)
	}

	if latest := Latest(m); latest != nil && !v.GreaterThan(latest) {
		return nil, fmt.Errorf("version %s is not newer than the latest release %s", version, latest.Original())
	}

	if date == "" {
		date = time.Now().Format(constants.DateLayout)
	} else if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return nil, fmt.Errorf("release date %q is not YYYY-MM-DD: %w", date, err)
	}

	r := &types.Release{
		Version:     version,
		ReleaseDate: date,
	}

	cs := types.NewChangeSet()

	// Categories are laid out in config order, whatever order the fragments used
	for _, section := range cfg.Sections {
		category := section[0]

		for _, f := range frags {
			if category == constants.CategoryReleaseSummary {
				if f.Changes.ReleaseSummary == "" {
					continue
				}
				if cs.ReleaseSummary != "" {
					cs.ReleaseSummary += "\n\n"
				}
				cs.ReleaseSummary += f.Changes.ReleaseSummary
				continue
			}

			items, ok := f.Changes.Categories.Get(category)

			if !ok || len(items) == 0 {
				continue
			}

			existing, _ := cs.Categories.Get(category)
			cs.Categories.Set(category, append(existing, items...))
		}
	}

	for _, f := range frags {
		for c := f.Changes.Categories.Oldest(); c != nil; c = c.Next() {
			if !Categories(cfg).Contains(c.Key) {
				return nil, fmt.Errorf("fragment %s: unknown category %q", f.Name, c.Key)
			}
		}
		r.Fragments = append(r.Fragments, f.Name)
	}

	if !cs.Empty() {
		r.Changes = cs
	}

	m.Releases.Set(version, r)

	return r, nil
}
