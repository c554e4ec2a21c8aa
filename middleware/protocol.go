package middleware

import (
	"fmt"

	"tnctl/constants"
)

// A decoded server frame. Only frames with an id answer a call.
type reply struct {
	id     string
	result any
	err    error

	// DDP pings need a pong
	ping bool
}

// The wire format for one of the two websocket APIs
type protocol interface {
	name() string
	path() string
	// Frame sent right after connecting, if any. helloOK checks the answer to it.
	hello() any
	helloOK(data []byte) error
	request(id, method string, params []any) any
	decode(method func(id string) string, data []byte) (reply, error)
}

// JSON-RPC 2.0, served at /api/current on TrueNAS 25.04 and later
type jsonRPC struct{}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    *middlewareErr `json:"data"`
}

type rpcFrame struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      *string   `json:"id"`
	Method  string    `json:"method,omitempty"`
	Result  any       `json:"result"`
	Error   *rpcError `json:"error"`
}

// The error object middlewared attaches to failed calls
type middlewareErr struct {
	Error   int    `json:"error"`
	Errname string `json:"errname"`
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Trace   *struct {
		Formatted string `json:"formatted"`
	} `json:"trace"`
}

func (e *middlewareErr) toError(method string, code int) error {
	if isMethodNotFound(e.Errname, code) {
		return &MethodNotFoundError{Method: method, Message: e.Reason}
	}

	ce := &CallError{
		Method:  method,
		Errname: e.Errname,
		Reason:  e.Reason,
	}

	if e.Trace != nil {
		ce.Trace = e.Trace.Formatted
	}

	return ce
}

func (jsonRPC) name() string { return "JSON-RPC" }
func (jsonRPC) path() string { return constants.APIPathCurrent }
func (jsonRPC) hello() any   { return nil }

func (jsonRPC) helloOK([]byte) error { return nil }

func (jsonRPC) request(id, method string, params []any) any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
}

func (jsonRPC) decode(method func(id string) string, data []byte) (reply, error) {
	var f rpcFrame

	if err := json.Unmarshal(data, &f); err != nil {
		return reply{}, fmt.Errorf("bad JSON-RPC frame: %w", err)
	}

	// Notifications (collection_update and friends) carry no id
	if f.ID == nil {
		return reply{}, nil
	}

	r := reply{id: *f.ID, result: f.Result}

	if f.Error != nil {
		m := method(r.id)

		if f.Error.Data != nil {
			r.err = f.Error.Data.toError(m, f.Error.Code)
		} else if isMethodNotFound("", f.Error.Code) {
			r.err = &MethodNotFoundError{Method: m, Message: f.Error.Message}
		} else {
			r.err = &CallError{Method: m, Reason: f.Error.Message}
		}
	}

	return r, nil
}

// The legacy DDP-style API at /websocket
type ddp struct{}

type ddpFrame struct {
	Msg    string         `json:"msg"`
	ID     string         `json:"id"`
	Result any            `json:"result"`
	Error  *middlewareErr `json:"error"`
}

func (ddp) name() string { return "DDP" }
func (ddp) path() string { return constants.APIPathLegacy }

func (ddp) hello() any {
	return map[string]any{
		"msg":     "connect",
		"version": "1",
		"support": []string{"1"},
	}
}

func (ddp) helloOK(data []byte) error {
	var f ddpFrame

	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("bad DDP frame: %w", err)
	}

	if f.Msg != "connected" {
		return fmt.Errorf("DDP handshake failed: got %q", f.Msg)
	}

	return nil
}

func (ddp) request(id, method string, params []any) any {
	return map[string]any{
		"id":     id,
		"msg":    "method",
		"method": method,
		"params": params,
	}
}

func (ddp) decode(method func(id string) string, data []byte) (reply, error) {
	var f ddpFrame

	if err := json.Unmarshal(data, &f); err != nil {
		return reply{}, fmt.Errorf("bad DDP frame: %w", err)
	}

	switch f.Msg {
	case "ping":
		return reply{ping: true}, nil
	case "result":
		r := reply{id: f.ID, result: f.Result}

		if f.Error != nil {
			r.err = f.Error.toError(method(f.ID), 0)
		}

		return r, nil
	}

	// added/changed/removed events
	return reply{}, nil
}
