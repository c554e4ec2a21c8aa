// Package mwtest provides a scripted middleware client for tests
package mwtest

import (
	"context"
	"strings"
	"sync"

	"tnctl/middleware"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler func(args []any) (any, error)

// A recorded call. Args is the JSON encoding of the argument list.
type Call struct {
	Method string
	Args   string
	Job    bool
}

func (c Call) String() string {
	return c.Method + " " + c.Args
}

// Fake answers calls from handlers registered per method. Methods without a handler fail
// with *middleware.MethodNotFoundError, like a middlewared that lacks them.
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
	closed   bool
}

func New() *Fake {
	return &Fake{handlers: map[string]Handler{}}
}

// Product registers the system.* calls that middleware.GetVersion makes
func (f *Fake) Product(typ, version string) *Fake {
	return f.Return("system.product_name", "TrueNAS").
		Return("system.product_type", typ).
		Return("system.version", "TrueNAS-"+version)
}

func (f *Fake) On(method string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[method] = h
	return f
}

// Return makes method always answer v. v is passed through JSON, so structs arrive as maps.
func (f *Fake) Return(method string, v any) *Fake {
	return f.On(method, func([]any) (any, error) { return v, nil })
}

func (f *Fake) Fail(method string, err error) *Fake {
	return f.On(method, func([]any) (any, error) { return nil, err })
}

func (f *Fake) dispatch(method string, job bool, args []any) (any, error) {
	if args == nil {
		args = []any{}
	}

	encoded, err := json.Marshal(args)

	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: string(encoded), Job: job})
	h, ok := f.handlers[method]
	f.mu.Unlock()

	if !ok {
		return nil, &middleware.MethodNotFoundError{Method: method, Message: "[ENOMETHOD] Method does not exist"}
	}

	v, err := h(args)

	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(v)

	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (f *Fake) Call(ctx context.Context, method string, args ...any) (any, error) {
	return f.dispatch(method, false, args)
}

func (f *Fake) CallString(ctx context.Context, method string, args ...any) (string, error) {
	v, err := f.dispatch(method, false, args)

	if err != nil {
		return "", err
	}

	if s, ok := v.(string); ok {
		return s, nil
	}

	b, err := json.Marshal(v)
	return string(b), err
}

func (f *Fake) Job(ctx context.Context, method string, args ...any) (any, error) {
	return f.dispatch(method, true, args)
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Calls returns every call made so far
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Call(nil), f.calls...)
}

// Methods returns the method names called, in order
func (f *Fake) Methods() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method)
	}
	return out
}

// Last returns the most recent call to method
func (f *Fake) Last(method string) (Call, bool) {
	calls := f.Calls()

	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i], true
		}
	}

	return Call{}, false
}

// Mutations returns the calls whose method isn't a read (query, config, get_*, system.*)
func (f *Fake) Mutations() []Call {
	var out []Call

	for _, c := range f.Calls() {
		if isRead(c.Method) {
			continue
		}
		out = append(out, c)
	}

	return out
}

func isRead(method string) bool {
	if strings.HasPrefix(method, "system.") || strings.HasPrefix(method, "auth.") {
		return true
	}

	i := strings.LastIndex(method, ".")
	verb := method[i+1:]

	switch {
	case verb == "query", verb == "config", verb == "choices", verb == "is_available":
		return true
	case strings.HasPrefix(verb, "get_"):
		return true
	}

	return false
}
