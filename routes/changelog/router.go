package changelog

import (
	"tnctl/api"
	"tnctl/changelogs"
	"tnctl/routes/changelog/endpoints/get_changelog"
	"tnctl/routes/changelog/endpoints/get_changelog_lint"
	"tnctl/routes/changelog/endpoints/get_changelog_text"
	"tnctl/routes/changelog/endpoints/get_release"

	"github.com/go-chi/chi/v5"
)

const tagName = "Changelog"

type Router struct{}

func (b Router) Tag() (string, string) {
	return tagName, "These endpoints serve the collection changelog."
}

func (b Router) Routes(r *chi.Mux) {
	api.Route{
		Pattern: "/changelog",
		OpId:    "get_changelog",
		Method:  api.GET,
		Docs:    get_changelog.Docs,
		Handler: get_changelog.Route,
	}.Route(r)

	api.Route{
		Pattern: "/changelog/lint",
		OpId:    "get_changelog_lint",
		Method:  api.GET,
		Docs:    get_changelog_lint.Docs,
		Handler: get_changelog_lint.Route,
	}.Route(r)

	api.Route{
		Pattern: "/changelog/releases/{version}",
		OpId:    "get_release",
		Method:  api.GET,
		Docs:    get_release.Docs,
		Handler: get_release.Route,
	}.Route(r)

	api.Route{
		Pattern: "/changelog.rst",
		OpId:    "get_changelog_rst",
		Method:  api.GET,
		Docs:    get_changelog_text.Docs(changelogs.FormatRST),
		Handler: get_changelog_text.Route(changelogs.FormatRST),
	}.Route(r)

	api.Route{
		Pattern: "/changelog.md",
		OpId:    "get_changelog_md",
		Method:  api.GET,
		Docs:    get_changelog_text.Docs(changelogs.FormatMarkdown),
		Handler: get_changelog_text.Route(changelogs.FormatMarkdown),
	}.Route(r)
}
