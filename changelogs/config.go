package changelogs

import (
	"errors"
	"fmt"
	"os"

	"tnctl/constants"
	"tnctl/types"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"
)

func DefaultConfig() *types.ChangelogConfig {
	sections := make([][2]string, len(constants.DefaultSections))
	copy(sections, constants.DefaultSections)

	return &types.ChangelogConfig{
		Title:        "TrueNAS Collection",
		FragmentsDir: "fragments",
		Sections:     sections,
	}
}

// LoadConfig reads changelogs/config.yaml. Keys that aren't set keep their defaults.
func LoadConfig(path string) (*types.ChangelogConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid changelog config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadConfigOrDefault is LoadConfig, except that a missing file gives the default config
func LoadConfigOrDefault(path string) (*types.ChangelogConfig, error) {
	cfg, err := LoadConfig(path)

	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return cfg, err
}

// Categories returns the set of category keys the config recognises
func Categories(cfg *types.ChangelogConfig) mapset.Set[string] {
	set := mapset.NewSet[string]()

	for _, s := range cfg.Sections {
		set.Add(s[0])
	}

	return set
}
