package types

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// A changelog manifest (changelogs/changelog.yaml)
type Changelog struct {
	Ancestor *string                                  `json:"ancestor" validate:"omitempty,semver" description:"The version this collection was forked from, if any"`
	Releases *orderedmap.OrderedMap[string, *Release] `json:"releases" description:"The releases, keyed by version, in file order"`
}

func NewChangelog() *Changelog {
	return &Changelog{
		Releases: orderedmap.New[string, *Release](),
	}
}

// A single release record
type Release struct {
	Version     string                   `json:"-" validate:"required,semver"`
	ReleaseDate string                   `json:"release_date,omitempty" validate:"omitempty,datetime=2006-01-02" description:"Calendar date of the release (YYYY-MM-DD)"`
	Changes     *ChangeSet               `json:"changes,omitempty" description:"Categorized change descriptions"`
	Modules     []PluginEntry            `json:"modules,omitempty" validate:"dive" description:"Modules added in this release"`
	Plugins     map[string][]PluginEntry `json:"plugins,omitempty" validate:"dive,dive" description:"Plugins added in this release, keyed by plugin type"`
	Objects     map[string][]PluginEntry `json:"objects,omitempty" validate:"dive,dive" description:"Objects (roles, playbooks) added in this release, keyed by object type"`
	Fragments   []string                 `json:"fragments,omitempty" description:"Fragment files this release was built from"`
}

// Changes of a release. Categories keeps the order they appear in the file.
type ChangeSet struct {
	ReleaseSummary string                                   `json:"release_summary,omitempty"`
	Categories     *orderedmap.OrderedMap[string, []string] `json:"categories,omitempty"`
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Categories: orderedmap.New[string, []string](),
	}
}

// MarshalJSON lays the change set out as the manifest does: release_summary and every
// category as keys of one object, in file order
func (c *ChangeSet) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, any]()

	if c.ReleaseSummary != "" {
		out.Set("release_summary", c.ReleaseSummary)
	}

	if c.Categories != nil {
		for pair := c.Categories.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}

	return json.Marshal(out)
}

// Returns true if there is nothing in the change set
func (c *ChangeSet) Empty() bool {
	return c == nil || (c.ReleaseSummary == "" && (c.Categories == nil || c.Categories.Len() == 0))
}

// A newly added module, plugin or object
type PluginEntry struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description" yaml:"description" validate:"required"`
	Namespace   string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// Changelog generation settings (changelogs/config.yaml)
type ChangelogConfig struct {
	Title        string      `yaml:"title" validate:"required"`
	Prefix       string      `yaml:"prefix" description:"FQCN prefix for new module names, e.g. arensb.truenas"`
	FragmentsDir string      `yaml:"notesdir"`
	Sections     [][2]string `yaml:"sections" validate:"required,min=1"`
}

// A lint finding. Line is 0 if unknown
type Problem struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", p.Path, p.Line, p.Message)
	}
	return p.Path + ": " + p.Message
}
