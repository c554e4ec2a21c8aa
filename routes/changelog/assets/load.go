package assets

import (
	"tnctl/changelogs"
	"tnctl/state"
	"tnctl/types"
)

// Load reads the manifest and its config from disk. Every request calls this, so edits
// to either file show up without a restart.
func Load() (*types.Changelog, *types.ChangelogConfig, []types.Problem, error) {
	cfg, err := changelogs.LoadConfigOrDefault(state.Config.Changelog.Config)

	if err != nil {
		return nil, nil, nil, err
	}

	m, problems, err := changelogs.Load(state.Config.Changelog.Path)

	if err != nil {
		return nil, nil, nil, err
	}

	return m, cfg, problems, nil
}
