package changelogs

import (
	"sort"
	"strings"

	"tnctl/constants"
	"tnctl/types"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

// Output format for rendered release notes
type Format string

const (
	FormatRST      Format = "rst"
	FormatMarkdown Format = "md"
)

type writer interface {
	title(sb *strings.Builder, s string)
	version(sb *strings.Builder, s string)
	section(sb *strings.Builder, s string)
	subsection(sb *strings.Builder, s string)
	bullet(sb *strings.Builder, s string)
}

type rstWriter struct{}

func underline(sb *strings.Builder, s string, c string) {
	sb.WriteString(s + "\n" + strings.Repeat(c, len(s)) + "\n\n")
}

func (rstWriter) title(sb *strings.Builder, s string) {
	bar := strings.Repeat("=", len(s))
	sb.WriteString(bar + "\n" + s + "\n" + bar + "\n\n.. contents:: Topics\n\n")
}

func (rstWriter) version(sb *strings.Builder, s string)    { underline(sb, s, "=") }
func (rstWriter) section(sb *strings.Builder, s string)    { underline(sb, s, "-") }
func (rstWriter) subsection(sb *strings.Builder, s string) { underline(sb, s, "~") }

func (rstWriter) bullet(sb *strings.Builder, s string) {
	// Continuation lines must line up with the text after "- "
	sb.WriteString("- " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ") + "\n")
}

type mdWriter struct{}

func (mdWriter) title(sb *strings.Builder, s string)      { sb.WriteString("# " + s + "\n\n") }
func (mdWriter) version(sb *strings.Builder, s string)    { sb.WriteString("## " + s + "\n\n") }
func (mdWriter) section(sb *strings.Builder, s string)    { sb.WriteString("### " + s + "\n\n") }
func (mdWriter) subsection(sb *strings.Builder, s string) { sb.WriteString("#### " + s + "\n\n") }

func (mdWriter) bullet(sb *strings.Builder, s string) {
	sb.WriteString("* " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ") + "\n")
}

// SortedVersions returns the release keys newest first. Keys that aren't semver sort last, by name.
func SortedVersions(m *types.Changelog) []string {
	keys := make([]string, 0, m.Releases.Len())
	for pair := m.Releases.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		vi, erri := semver.StrictNewVersion(keys[i])
		vj, errj := semver.StrictNewVersion(keys[j])

		switch {
		case erri == nil && errj == nil:
			return vi.GreaterThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		}
		return keys[i] > keys[j]
	})

	return keys
}

func Render(m *types.Changelog, cfg *types.ChangelogConfig, format Format) string {
	var w writer = rstWriter{}
	if format == FormatMarkdown {
		w = mdWriter{}
	}

	var sb strings.Builder

	w.title(&sb, cfg.Title+" Release Notes")

	for _, version := range SortedVersions(m) {
		r, _ := m.Releases.Get(version)
		renderRelease(&sb, w, cfg, r)
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func RenderRST(m *types.Changelog, cfg *types.ChangelogConfig) string {
	return Render(m, cfg, FormatRST)
}

func RenderMarkdown(m *types.Changelog, cfg *types.ChangelogConfig) string {
	return Render(m, cfg, FormatMarkdown)
}

func qualify(cfg *types.ChangelogConfig, e types.PluginEntry) string {
	name := e.Name
	if e.Namespace != "" {
		name = e.Namespace + "." + name
	}
	if cfg.Prefix != "" {
		name = cfg.Prefix + "." + name
	}
	return name + " - " + e.Description
}

func renderRelease(sb *strings.Builder, w writer, cfg *types.ChangelogConfig, r *types.Release) {
	w.version(sb, "v"+r.Version)

	if r.Changes != nil {
		for _, section := range cfg.Sections {
			category, title := section[0], section[1]

			// Trivial changes are kept in the manifest but never rendered
			if category == constants.CategoryTrivial {
				continue
			}

			if category == constants.CategoryReleaseSummary {
				if r.Changes.ReleaseSummary != "" {
					w.section(sb, title)
					sb.WriteString(strings.TrimSpace(r.Changes.ReleaseSummary) + "\n\n")
				}
				continue
			}

			items, ok := r.Changes.Categories.Get(category)

			if !ok || len(items) == 0 {
				continue
			}

			w.section(sb, title)
			for _, item := range items {
				w.bullet(sb, item)
			}
			sb.WriteString("\n")
		}
	}

	if len(r.Modules) > 0 {
		w.section(sb, "New Modules")
		for _, e := range r.Modules {
			w.bullet(sb, qualify(cfg, e))
		}
		sb.WriteString("\n")
	}

	renderGroups(sb, w, cfg, "New Plugins", r.Plugins)
	renderGroups(sb, w, cfg, "New Objects", r.Objects)
}

func renderGroups(sb *strings.Builder, w writer, cfg *types.ChangelogConfig, title string, groups map[string][]types.PluginEntry) {
	if len(groups) == 0 {
		return
	}

	keys := make([]string, 0, len(groups))
	for k, v := range groups {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}

	if len(keys) == 0 {
		return
	}

	sort.Strings(keys)

	w.section(sb, title)

	for _, k := range keys {
		w.subsection(sb, titleCase.String(k))
		for _, e := range groups[k] {
			w.bullet(sb, qualify(cfg, e))
		}
		sb.WriteString("\n")
	}
}
