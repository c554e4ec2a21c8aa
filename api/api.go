// Defines a standard way to define routes
package api

import (
	"context"
	"fmt"
	"net/http"

	"tnctl/constants"
	"tnctl/docs"
	"tnctl/state"
	"tnctl/types"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stores the current tag
var CurrentTag string

// A API Router, not to be confused with Router which routes the actual routes
type APIRouter interface {
	Routes(r *chi.Mux)
	Tag() (string, string)
}

type Method int

const (
	GET Method = iota
	HEAD
)

// Returns the method as a string
func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case HEAD:
		return "HEAD"
	}

	panic("Invalid method")
}

// Represents a route on the API
type Route struct {
	Method  Method
	Pattern string
	OpId    string
	Handler func(d RouteData, r *http.Request) HttpResponse
	Setup   func()
	Docs    func() *docs.Doc
}

type RouteData struct {
	Context context.Context
}

type Router interface {
	Get(pattern string, h http.HandlerFunc)
	Head(pattern string, h http.HandlerFunc)
}

func (r Route) String() string {
	return r.Method.String() + " " + r.Pattern + " (" + r.OpId + ")"
}

func (r Route) Route(ro Router) {
	if r.OpId == "" {
		panic("OpId is empty: " + r.String())
	}

	if r.Handler == nil {
		panic("Handler is nil: " + r.String())
	}

	if r.Docs == nil {
		panic("Docs is nil: " + r.String())
	}

	if r.Pattern == "" {
		panic("Pattern is empty: " + r.String())
	}

	if CurrentTag == "" {
		panic("CurrentTag is empty: " + r.String())
	}

	if r.Setup != nil {
		r.Setup()
	}

	docs.AddDocs(r.Method.String(), r.Pattern, r.OpId, CurrentTag, r.Docs())

	handle := func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		resp := make(chan HttpResponse, 1)

		go func() {
			defer func() {
				err := recover()

				if err != nil {
					state.Logger.Errorw("Handler panicked", zap.String("route", r.String()), zap.Any("error", err))
					state.Report(fmt.Errorf("%s: panic: %v", r.String(), err))
					resp <- DefaultResponse(http.StatusInternalServerError)
				}
			}()

			resp <- r.Handler(RouteData{
				Context: ctx,
			}, req)
		}()

		respond(ctx, w, resp)
	}

	switch r.Method {
	case GET:
		ro.Get(r.Pattern, handle)
	case HEAD:
		ro.Head(r.Pattern, handle)
	default:
		panic("Unknown method for route: " + r.String())
	}
}

func respond(ctx context.Context, w http.ResponseWriter, data chan HttpResponse) {
	select {
	case <-ctx.Done():
		return
	case msg := <-data:
		for k, v := range msg.Headers {
			w.Header().Set(k, v)
		}

		if msg.Status == 0 {
			msg.Status = http.StatusOK
		}

		if msg.Json != nil {
			bytes, err := json.Marshal(msg.Json)

			if err != nil {
				state.Logger.Errorw("Failed to marshal response", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(constants.InternalError))
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(msg.Status)
			w.Write(bytes)
			return
		}

		w.WriteHeader(msg.Status)

		if len(msg.Bytes) > 0 {
			w.Write(msg.Bytes)
			return
		}

		w.Write([]byte(msg.Data))
	}
}

type HttpResponse struct {
	// Data is the data to be sent to the client
	Data string
	// Optional, can be used in place of Data
	Bytes []byte
	// Json body to be sent to the client
	Json any
	// Headers to set
	Headers map[string]string
	// Status is the HTTP status code to send
	Status int
}

// Creates a default HTTP response based on the status code
func DefaultResponse(statusCode int) HttpResponse {
	switch statusCode {
	case http.StatusNotFound:
		return HttpResponse{
			Status: statusCode,
			Data:   constants.NotFound,
		}
	case http.StatusBadRequest:
		return HttpResponse{
			Status: statusCode,
			Data:   constants.BadRequest,
		}
	case http.StatusMethodNotAllowed:
		return HttpResponse{
			Status: statusCode,
			Data:   constants.MethodNotAllowed,
		}
	case http.StatusOK:
		return HttpResponse{
			Status: statusCode,
			Data:   constants.Success,
		}
	}

	return HttpResponse{
		Status: statusCode,
		Data:   constants.InternalError,
	}
}

// Error responds with status and a types.ApiError holding err
func Error(status int, err error) HttpResponse {
	return HttpResponse{
		Status: status,
		Json:   types.ApiError{Message: err.Error()},
	}
}
