// Rendered release notes, one route per format
package get_changelog_text

import (
	"net/http"

	"tnctl/api"
	"tnctl/changelogs"
	"tnctl/docs"
	"tnctl/routes/changelog/assets"
	"tnctl/state"

	"go.uber.org/zap"
)

var contentTypes = map[changelogs.Format]string{
	changelogs.FormatRST:      "text/x-rst; charset=utf-8",
	changelogs.FormatMarkdown: "text/markdown; charset=utf-8",
}

func Docs(format changelogs.Format) func() *docs.Doc {
	return func() *docs.Doc {
		return &docs.Doc{
			Summary:     "Get Release Notes (" + string(format) + ")",
			Description: "Renders the changelog, newest release first.",
			ContentType: contentTypes[format],
		}
	}
}

func Route(format changelogs.Format) func(d api.RouteData, r *http.Request) api.HttpResponse {
	return func(d api.RouteData, r *http.Request) api.HttpResponse {
		m, cfg, _, err := assets.Load()

		if err != nil {
			state.Logger.Errorw("Failed to load changelog", zap.Error(err), zap.String("format", string(format)))
			return api.Error(http.StatusInternalServerError, err)
		}

		return api.HttpResponse{
			Data: changelogs.Render(m, cfg, format),
			Headers: map[string]string{
				"Content-Type": contentTypes[format],
			},
		}
	}
}
