package get_changelog

import (
	"net/http"

	"tnctl/api"
	"tnctl/docs"
	"tnctl/routes/changelog/assets"
	"tnctl/state"
	"tnctl/types"

	"go.uber.org/zap"
)

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Get Changelog",
		Description: "Gets the changelog manifest, with releases in file order.",
		Resp:        types.Changelog{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	m, _, _, err := assets.Load()

	if err != nil {
		state.Logger.Errorw("Failed to load changelog", zap.Error(err))
		return api.Error(http.StatusInternalServerError, err)
	}

	return api.HttpResponse{
		Json: m,
	}
}
