package get_changelog_lint

import (
	"net/http"

	"tnctl/api"
	"tnctl/changelogs"
	"tnctl/docs"
	"tnctl/routes/changelog/assets"
	"tnctl/state"
	"tnctl/types"

	"go.uber.org/zap"
)

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Lint Changelog",
		Description: "Checks the changelog manifest. The status is 200 even when problems are found; ok is false then.",
		Resp:        types.LintReport{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	m, cfg, problems, err := assets.Load()

	if err != nil {
		state.Logger.Errorw("Failed to load changelog", zap.Error(err))
		return api.Error(http.StatusInternalServerError, err)
	}

	problems = append(problems, changelogs.Lint(state.Config.Changelog.Path, m, cfg)...)

	if problems == nil {
		problems = []types.Problem{}
	}

	return api.HttpResponse{
		Json: types.LintReport{
			OK:       len(problems) == 0,
			Problems: problems,
		},
	}
}
