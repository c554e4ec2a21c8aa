package ping

import (
	"net/http"

	"tnctl/api"
	"tnctl/docs"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Hello struct {
	Message   string `json:"message"`
	Docs      string `json:"docs"`
	Changelog string `json:"changelog"`
}

var helloWorld []byte
var helloWorldB Hello

func Setup() {
	// This is done here to avoid constant remarshalling
	helloWorldB = Hello{
		Message:   "Hello world from the tnctl documentation server!",
		Docs:      "/openapi",
		Changelog: "/changelog.rst",
	}

	var err error
	helloWorld, err = json.Marshal(helloWorldB)

	if err != nil {
		panic(err)
	}
}

func Docs() *docs.Doc {
	return &docs.Doc{
		Summary:     "Ping Server",
		Description: "A simple ping endpoint to check if the server is online. It returns a small JSON object pointing at the other endpoints.",
		Resp:        helloWorldB,
	}
}

func Route(d api.RouteData, r *http.Request) api.HttpResponse {
	return api.HttpResponse{
		Bytes: helloWorld,
	}
}
