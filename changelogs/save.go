package changelogs

import (
	"bytes"
	"os"
	"sort"

	"tnctl/constants"
	"tnctl/types"

	"gopkg.in/yaml.v3"
)

// Strings that would read back as another type (dates, numbers, bools) are single quoted,
// as antsibull-changelog writes them
func str(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: s}

	if n.ShortTag() != "!!str" {
		n.Style = yaml.SingleQuotedStyle
	}

	n.Tag = "!!str"
	return n
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func seqOf(items []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, s := range items {
		n.Content = append(n.Content, str(s))
	}
	return n
}

func put(m *yaml.Node, key string, val *yaml.Node) {
	m.Content = append(m.Content, str(key), val)
}

func entriesNode(entries []types.PluginEntry) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, e := range entries {
		en := mapping()
		put(en, "description", str(e.Description))
		put(en, "name", str(e.Name))
		put(en, "namespace", str(e.Namespace))
		n.Content = append(n.Content, en)
	}
	return n
}

func groupsNode(groups map[string][]types.PluginEntry) *yaml.Node {
	n := mapping()

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		put(n, k, entriesNode(groups[k]))
	}
	return n
}

// Encode renders m as YAML, keeping release and category order
func Encode(m *types.Changelog) ([]byte, error) {
	root := mapping()

	if m.Ancestor == nil {
		put(root, "ancestor", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
	} else {
		put(root, "ancestor", str(*m.Ancestor))
	}

	releases := mapping()

	for pair := m.Releases.Oldest(); pair != nil; pair = pair.Next() {
		r := pair.Value
		rn := mapping()

		if !r.Changes.Empty() {
			cn := mapping()
			if r.Changes.ReleaseSummary != "" {
				put(cn, constants.CategoryReleaseSummary, str(r.Changes.ReleaseSummary))
			}
			for c := r.Changes.Categories.Oldest(); c != nil; c = c.Next() {
				put(cn, c.Key, seqOf(c.Value))
			}
			put(rn, "changes", cn)
		}

		if len(r.Fragments) > 0 {
			put(rn, "fragments", seqOf(r.Fragments))
		}

		if len(r.Modules) > 0 {
			put(rn, "modules", entriesNode(r.Modules))
		}

		if len(r.Objects) > 0 {
			put(rn, "objects", groupsNode(r.Objects))
		}

		if len(r.Plugins) > 0 {
			put(rn, "plugins", groupsNode(r.Plugins))
		}

		if r.ReleaseDate != "" {
			put(rn, "release_date", str(r.ReleaseDate))
		}

		put(releases, pair.Key, rn)
	}

	put(root, "releases", releases)

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}

	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Save writes m to path, replacing the file atomically
func Save(path string, m *types.Changelog) error {
	data, err := Encode(m)

	if err != nil {
		return err
	}

	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
