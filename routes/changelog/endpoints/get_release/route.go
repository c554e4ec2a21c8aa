package get_release

import (
	"net/http"

	"tnctl/api"
	"tnctl/docs"
	"tnctl/routes/changelog/assets"
	"tnctl/state"
	"tnctl/types"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Get Release",
		Description: "Gets a single release record by version.",
		Params: []docs.Parameter{
			{
				Name:        "version",
				In:          "path",
				Description: "The release version, as written in the manifest",
				Required:    true,
				Schema:      docs.StringSchema,
			},
		},
		Resp: types.ReleaseResponse{},
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	version := chi.URLParam(r, "version")

	m, _, _, err := assets.Load()

	if err != nil {
		state.Logger.Errorw("Failed to load changelog", zap.Error(err))
		return api.Error(http.StatusInternalServerError, err)
	}

	release, ok := m.Releases.Get(version)

	if !ok {
		return api.DefaultResponse(http.StatusNotFound)
	}

	return api.HttpResponse{
		Json: types.ReleaseResponse{
			Version: version,
			Release: release,
		},
	}
}
