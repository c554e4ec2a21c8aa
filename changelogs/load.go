// Package changelogs reads, checks, extends and renders antsibull-style changelog manifests.
package changelogs

import (
	"fmt"
	"os"

	"tnctl/constants"
	"tnctl/types"
	"tnctl/validators"

	"gopkg.in/yaml.v3"
)

var validate = validators.New()

// Load reads a changelog manifest. Structural problems (duplicate versions, wrong node
// kinds, non-string entries) are returned as problems; err is only set when the file
// can't be read or isn't YAML at all.
func Load(path string) (*types.Changelog, []types.Problem, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, nil, err
	}

	return Parse(path, data)
}

func Parse(path string, data []byte) (*types.Changelog, []types.Problem, error) {
	var doc yaml.Node

	// Decoding into a Node keeps duplicate keys, which we want to report ourselves
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	p := &parser{path: path}
	m := p.document(&doc)

	return m, p.problems, nil
}

type parser struct {
	path     string
	problems []types.Problem
}

func (p *parser) problem(n *yaml.Node, format string, args ...any) {
	line := 0
	if n != nil {
		line = n.Line
	}

	p.problems = append(p.problems, types.Problem{
		Path:    p.path,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func (p *parser) document(doc *yaml.Node) *types.Changelog {
	m := types.NewChangelog()

	if doc.Kind == 0 || len(doc.Content) == 0 {
		p.problem(nil, "file is empty")
		return m
	}

	root := doc.Content[0]

	if root.Kind != yaml.MappingNode {
		p.problem(root, "top level must be a mapping")
		return m
	}

	var sawReleases bool

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]

		switch key.Value {
		case "ancestor":
			if isNull(val) {
				continue
			}
			if val.Kind != yaml.ScalarNode {
				p.problem(val, "ancestor must be null or a version string")
				continue
			}
			ancestor := val.Value
			m.Ancestor = &ancestor
		case "releases":
			sawReleases = true
			p.releases(m, val)
		default:
			p.problem(key, "unknown top-level key %q", key.Value)
		}
	}

	if !sawReleases {
		p.problem(root, "missing releases")
	}

	return m
}

func (p *parser) releases(m *types.Changelog, n *yaml.Node) {
	if isNull(n) {
		return
	}

	if n.Kind != yaml.MappingNode {
		p.problem(n, "releases must be a mapping of version to release")
		return
	}

	seen := map[string]int{}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		version := key.Value

		if first, ok := seen[version]; ok {
			p.problem(key, "duplicate version %q (first defined on line %d)", version, first)
			continue
		}

		seen[version] = key.Line

		m.Releases.Set(version, p.release(version, val))
	}
}

func (p *parser) release(version string, n *yaml.Node) *types.Release {
	r := &types.Release{Version: version}

	if isNull(n) {
		return r
	}

	if n.Kind != yaml.MappingNode {
		p.problem(n, "release %s must be a mapping", version)
		return r
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]

		switch key.Value {
		case "release_date":
			if val.Kind != yaml.ScalarNode || isNull(val) {
				p.problem(val, "release %s: release_date must be a date", version)
				continue
			}
			r.ReleaseDate = val.Value
		case "changes":
			r.Changes = p.changes(version, val)
		case "modules":
			r.Modules = p.entries(version+" modules", val)
		case "plugins":
			r.Plugins = p.entryGroups(version+" plugins", val)
		case "objects":
			r.Objects = p.entryGroups(version+" objects", val)
		case "fragments":
			r.Fragments = p.strings(version+" fragments", val)
		default:
			p.problem(key, "release %s: unknown key %q", version, key.Value)
		}
	}

	return r
}

// Shared by the manifest and fragment files, which use the same category layout
func (p *parser) changes(where string, n *yaml.Node) *types.ChangeSet {
	cs := types.NewChangeSet()

	if isNull(n) {
		return cs
	}

	if n.Kind != yaml.MappingNode {
		p.problem(n, "%s: changes must be a mapping of category to list", where)
		return cs
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]

		if key.Value == constants.CategoryReleaseSummary {
			if val.Kind != yaml.ScalarNode || isNull(val) {
				p.problem(val, "%s: release_summary must be a string", where)
				continue
			}
			cs.ReleaseSummary = val.Value
			continue
		}

		if _, ok := cs.Categories.Get(key.Value); ok {
			p.problem(key, "%s: category %q listed twice", where, key.Value)
			continue
		}

		cs.Categories.Set(key.Value, p.strings(where+" "+key.Value, val))
	}

	return cs
}

func (p *parser) strings(where string, n *yaml.Node) []string {
	if n.Kind != yaml.SequenceNode {
		p.problem(n, "%s: must be a list of strings", where)
		return nil
	}

	out := make([]string, 0, len(n.Content))

	for i, item := range n.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
			p.problem(item, "%s: entry %d is not a string", where, i+1)
			continue
		}
		out = append(out, item.Value)
	}

	return out
}

func (p *parser) entries(where string, n *yaml.Node) []types.PluginEntry {
	if n.Kind != yaml.SequenceNode {
		p.problem(n, "%s: must be a list", where)
		return nil
	}

	var out []types.PluginEntry

	for _, item := range n.Content {
		var e types.PluginEntry

		if err := item.Decode(&e); err != nil {
			p.problem(item, "%s: %s", where, err)
			continue
		}

		out = append(out, e)
	}

	return out
}

func (p *parser) entryGroups(where string, n *yaml.Node) map[string][]types.PluginEntry {
	if n.Kind != yaml.MappingNode {
		p.problem(n, "%s: must be a mapping of type to list", where)
		return nil
	}

	out := map[string][]types.PluginEntry{}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		out[key.Value] = p.entries(where+" "+key.Value, val)
	}

	return out
}
