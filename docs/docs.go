// Package docs builds the OpenAPI document of the documentation server from the routes
// registered with api.Route
package docs

import (
	"reflect"
	"strings"
	"sync"

	"tnctl/types"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// Documentation of a single route
type Doc struct {
	Summary     string
	Description string
	Params      []Parameter
	Resp        any

	// Set for text routes, Resp is ignored then
	ContentType string
}

type Parameter struct {
	Name        string              `json:"name"`
	In          string              `json:"in"`
	Description string              `json:"description"`
	Required    bool                `json:"required"`
	Schema      *openapi3.SchemaRef `json:"schema"`
}

type info struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type component struct {
	Schemas map[string]*openapi3.SchemaRef `json:"schemas"`
}

type ref struct {
	Ref string `json:"$ref"`
}

type mediaType struct {
	Schema any `json:"schema"`
}

type response struct {
	Description string               `json:"description"`
	Content     map[string]mediaType `json:"content"`
}

type operation struct {
	Summary     string              `json:"summary"`
	Tags        []string            `json:"tags,omitempty"`
	Description string              `json:"description"`
	ID          string              `json:"operationId"`
	Parameters  []Parameter         `json:"parameters"`
	Responses   map[string]response `json:"responses"`
}

type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Openapi struct {
	OpenAPI    string                           `json:"openapi"`
	Info       info                             `json:"info"`
	Components component                        `json:"components"`
	Paths      map[string]map[string]*operation `json:"paths"`
	Tags       []Tag                            `json:"tags,omitempty"`
}

var (
	mu  sync.Mutex
	api = Openapi{
		OpenAPI: "3.0.3",
		Info: info{
			Title:       "tnctl documentation server",
			Description: "Serves the collection changelog, rendered and as data, along with its lint status.",
			Version:     "1.0",
		},
		Components: component{
			Schemas: map[string]*openapi3.SchemaRef{},
		},
		Paths: map[string]map[string]*operation{},
	}
)

var StringSchema *openapi3.SchemaRef

func init() {
	var err error

	StringSchema, err = openapi3gen.NewSchemaRefForValue("1.0.0", nil)

	if err != nil {
		panic(err)
	}

	errSchema, err := openapi3gen.NewSchemaRefForValue(types.ApiError{}, nil)

	if err != nil {
		panic(err)
	}

	api.Components.Schemas["ApiError"] = errSchema
}

func AddTag(name, description string) {
	mu.Lock()
	defer mu.Unlock()

	for _, t := range api.Tags {
		if t.Name == name {
			return
		}
	}

	api.Tags = append(api.Tags, Tag{Name: name, Description: description})
}

func schemaName(v any) string {
	name := reflect.TypeOf(v).String()

	return strings.NewReplacer("[", "-", "]", "", " ", "", "*", "", "types.", "").Replace(name)
}

// AddDocs records a route. chi style {param} patterns are already what OpenAPI expects.
func AddDocs(method, pattern, opId, tag string, d *Doc) {
	mu.Lock()
	defer mu.Unlock()

	ok := &response{Description: "Success", Content: map[string]mediaType{}}

	if d.ContentType != "" {
		ok.Content[d.ContentType] = mediaType{Schema: StringSchema}
	} else if d.Resp != nil {
		name := schemaName(d.Resp)

		if _, exists := api.Components.Schemas[name]; !exists {
			schemaRef, err := openapi3gen.NewSchemaRefForValue(d.Resp, nil)

			if err != nil {
				panic(err)
			}

			api.Components.Schemas[name] = schemaRef
		}

		ok.Content["application/json"] = mediaType{Schema: ref{Ref: "#/components/schemas/" + name}}
	}

	params := d.Params
	if params == nil {
		params = []Parameter{}
	}

	op := &operation{
		Summary:     d.Summary,
		Description: d.Description,
		ID:          opId,
		Parameters:  params,
		Responses: map[string]response{
			"200": *ok,
			"404": {
				Description: "Not Found",
				Content: map[string]mediaType{
					"application/json": {Schema: ref{Ref: "#/components/schemas/ApiError"}},
				},
			},
		},
	}

	if tag != "" {
		op.Tags = []string{tag}
	}

	if api.Paths[pattern] == nil {
		api.Paths[pattern] = map[string]*operation{}
	}

	api.Paths[pattern][strings.ToLower(method)] = op
}

func GetSchema() Openapi {
	mu.Lock()
	defer mu.Unlock()

	return api
}
