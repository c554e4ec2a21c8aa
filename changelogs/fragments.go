package changelogs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tnctl/constants"
	"tnctl/types"

	"gopkg.in/yaml.v3"
)

// A change fragment (changelogs/fragments/*.yml): one file per change, keyed by category
type Fragment struct {
	Name    string
	Changes *types.ChangeSet
}

func isFragmentFile(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}

// LoadFragments reads every fragment in dir, sorted by file name. A missing dir
// means there are no fragments.
func LoadFragments(dir string) ([]Fragment, []types.Problem, error) {
	ents, err := os.ReadDir(dir)

	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	names := []string{}
	for _, ent := range ents {
		if ent.IsDir() || !isFragmentFile(ent.Name()) {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	var frags []Fragment
	var problems []types.Problem

	for _, name := range names {
		path := filepath.Join(dir, name)

		data, err := os.ReadFile(path)

		if err != nil {
			return nil, nil, err
		}

		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			problems = append(problems, types.Problem{Path: path, Message: err.Error()})
			continue
		}

		p := &parser{path: path}

		if doc.Kind == 0 || len(doc.Content) == 0 {
			p.problem(nil, "fragment is empty")
			problems = append(problems, p.problems...)
			continue
		}

		cs := p.changes("fragment", doc.Content[0])
		problems = append(problems, p.problems...)

		frags = append(frags, Fragment{Name: name, Changes: cs})
	}

	return frags, problems, nil
}

// LintFragments checks fragment files against the configured categories
func LintFragments(dir string, cfg *types.ChangelogConfig) ([]types.Problem, error) {
	frags, problems, err := LoadFragments(dir)

	if err != nil {
		return nil, err
	}

	known := Categories(cfg)

	for _, f := range frags {
		path := filepath.Join(dir, f.Name)

		if f.Changes.Empty() {
			problems = append(problems, types.Problem{Path: path, Message: "fragment has no changes"})
		}

		for c := f.Changes.Categories.Oldest(); c != nil; c = c.Next() {
			if !known.Contains(c.Key) {
				problems = append(problems, types.Problem{Path: path, Message: fmt.Sprintf("unknown category %q", c.Key)})
			}
			if len(c.Value) == 0 {
				problems = append(problems, types.Problem{Path: path, Message: fmt.Sprintf("category %q must not be empty", c.Key)})
			}
		}
	}

	return problems, nil
}

// NewFragment writes a single-entry fragment. It refuses to overwrite an existing file.
func NewFragment(dir, name, category, text string, cfg *types.ChangelogConfig) (string, error) {
	if !Categories(cfg).Contains(category) {
		return "", fmt.Errorf("unknown category %q", category)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("fragment text is empty")
	}

	if !isFragmentFile(name) {
		name += ".yml"
	}

	if strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("fragment name %q must not contain a path separator", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var body any
	if category == constants.CategoryReleaseSummary {
		body = map[string]string{category: text}
	} else {
		body = map[string][]string{category: {text}}
	}

	data, err := yaml.Marshal(body)

	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)

	if err != nil {
		return "", err
	}

	defer f.Close()

	if _, err := f.Write(append([]byte("---\n"), data...)); err != nil {
		return "", err
	}

	return path, nil
}

// RemoveFragments deletes fragments that were folded into a release
func RemoveFragments(dir string, frags []Fragment) error {
	for _, f := range frags {
		if err := os.Remove(filepath.Join(dir, f.Name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
