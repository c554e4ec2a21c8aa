package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A tiny middlewared. Handlers return a result or a middleware error object.
type fakeMiddlewared struct {
	t       *testing.T
	jsonRPC bool

	mu       sync.Mutex
	polls    map[int]int
	upgrader websocket.Upgrader
}

func newFakeMiddlewared(t *testing.T, jsonRPC bool) *httptest.Server {
	f := &fakeMiddlewared{t: t, jsonRPC: jsonRPC, polls: map[int]int{}}

	mux := http.NewServeMux()

	if jsonRPC {
		mux.HandleFunc("/api/current", f.serveJSONRPC)
	}

	mux.HandleFunc("/websocket", f.serveDDP)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func (f *fakeMiddlewared) handle(method string, params []any) (any, map[string]any) {
	switch method {
	case "auth.login_with_api_key":
		return params[0] == "secret", nil
	case "auth.login":
		return params[0] == "root" && params[1] == "hunter2", nil
	case "system.product_name":
		return "TrueNAS", nil
	case "user.query":
		return []any{map[string]any{"id": 1, "username": "bob", "filters": params}}, nil
	case "pool.dataset.create":
		return nil, map[string]any{
			"error":   22,
			"errname": "EINVAL",
			"reason":  "[EINVAL] pool_dataset_create.name: Parent dataset does not exist",
			"trace":   map[string]any{"formatted": "Traceback (most recent call last): ..."},
		}
	case "pool.scrub.run":
		return 7, nil
	case "replication.run":
		return 8, nil
	case "core.get_jobs":
		id := int(params[0].([]any)[0].([]any)[2].(float64))

		f.mu.Lock()
		f.polls[id]++
		n := f.polls[id]
		f.mu.Unlock()

		job := map[string]any{"id": id, "method": "x", "state": "RUNNING"}

		switch {
		case id == 7 && n >= 2:
			job["state"] = "SUCCESS"
			job["result"] = "done"
		case id == 8:
			job["state"] = "FAILED"
			job["error"] = "[EFAULT] disk on fire"
			job["exception"] = "Traceback ..."
		}

		return []any{job}, nil
	}

	return nil, map[string]any{"error": 2, "errname": "ENOMETHOD", "reason": "Method does not exist"}
}

func (f *fakeMiddlewared) serveJSONRPC(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Unsolicited events must be ignored by the client
	conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "method": "collection_update", "params": map[string]any{}})

	for {
		var req struct {
			ID     string `json:"id"`
			Method string `json:"method"`
			Params []any  `json:"params"`
		}

		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		result, mwErr := f.handle(req.Method, req.Params)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}

		switch {
		case mwErr != nil && mwErr["errname"] == "ENOMETHOD":
			resp["error"] = map[string]any{"code": -32601, "message": "Method not found"}
		case mwErr != nil:
			resp["error"] = map[string]any{"code": -32001, "message": "Method call error", "data": mwErr}
		default:
			resp["result"] = result
		}

		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (f *fakeMiddlewared) serveDDP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil || hello["msg"] != "connect" {
		conn.WriteJSON(map[string]any{"msg": "failed", "version": "1"})
		return
	}

	conn.WriteJSON(map[string]any{"msg": "connected", "session": "abc"})
	conn.WriteJSON(map[string]any{"msg": "ping"})

	for {
		var req struct {
			ID     string `json:"id"`
			Msg    string `json:"msg"`
			Method string `json:"method"`
			Params []any  `json:"params"`
		}

		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if req.Msg != "method" {
			continue
		}

		result, mwErr := f.handle(req.Method, req.Params)

		resp := map[string]any{"msg": "result", "id": req.ID}

		if mwErr != nil {
			resp["error"] = mwErr
		} else {
			resp["result"] = result
		}

		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func dialTest(t *testing.T, srv *httptest.Server, o Options) *Websocket {
	t.Helper()

	o.URI = srv.URL
	o.JobPollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	w, err := Dial(ctx, o)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	return w
}

func exerciseCalls(t *testing.T, w *Websocket) {
	ctx := context.Background()

	v, err := w.Call(ctx, "user.query", Eq("username", "bob"))
	require.NoError(t, err)

	users := v.([]any)
	require.Len(t, users, 1)
	user := users[0].(map[string]any)
	assert.Equal(t, "bob", user["username"])
	assert.Equal(t, []any{[]any{[]any{"username", "=", "bob"}}}, user["filters"])

	name, err := w.CallString(ctx, "system.product_name")
	require.NoError(t, err)
	assert.Equal(t, "TrueNAS", name)

	_, err = w.Call(ctx, "system.frobnicate")
	var notFound *MethodNotFoundError
	require.True(t, errors.As(err, &notFound), "got %v", err)
	assert.Equal(t, "system.frobnicate", notFound.Method)

	_, err = w.Call(ctx, "pool.dataset.create", map[string]any{"name": "tank/a/b"})
	var callErr *CallError
	require.True(t, errors.As(err, &callErr), "got %v", err)
	assert.Equal(t, "EINVAL", callErr.Errname)
	assert.Equal(t, "pool.dataset.create", callErr.Method)
	assert.Contains(t, callErr.Trace, "Traceback")

	res, err := w.Job(ctx, "pool.scrub.run", "tank")
	require.NoError(t, err)
	assert.Equal(t, "done", res)

	_, err = w.Job(ctx, "replication.run", 1)
	var jobErr *JobError
	require.True(t, errors.As(err, &jobErr), "got %v", err)
	assert.Equal(t, 8, jobErr.JobID)
	assert.Equal(t, "FAILED", jobErr.State)
	assert.Equal(t, "[EFAULT] disk on fire", jobErr.Err)
}

func TestWebsocketJSONRPC(t *testing.T) {
	srv := newFakeMiddlewared(t, true)
	w := dialTest(t, srv, Options{APIKey: "secret"})

	assert.Equal(t, "JSON-RPC", w.proto.name())
	exerciseCalls(t, w)
}

func TestWebsocketFallsBackToLegacyAPI(t *testing.T) {
	srv := newFakeMiddlewared(t, false)
	w := dialTest(t, srv, Options{Username: "root", Password: "hunter2"})

	assert.Equal(t, "DDP", w.proto.name())
	exerciseCalls(t, w)
}

func TestWebsocketConcurrentCalls(t *testing.T) {
	srv := newFakeMiddlewared(t, true)
	w := dialTest(t, srv, Options{APIKey: "secret"})

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.CallString(context.Background(), "system.product_name")
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestWebsocketLoginFailure(t *testing.T) {
	srv := newFakeMiddlewared(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := Dial(ctx, Options{URI: srv.URL, APIKey: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary URI failed")
	assert.Contains(t, err.Error(), "fallback URI failed")
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestWebsocketClosed(t *testing.T) {
	srv := newFakeMiddlewared(t, true)
	w := dialTest(t, srv, Options{APIKey: "secret"})

	require.NoError(t, w.Close())

	_, err := w.Call(context.Background(), "system.product_name")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewRejectsBadOptions(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Options{Method: "carrier-pigeon"})
	assert.ErrorContains(t, err, `unknown middleware method "carrier-pigeon"`)

	_, err = New(ctx, Options{Method: "websocket", APIKey: "x"})
	assert.ErrorContains(t, err, "TRUENAS_URI")

	_, err = New(ctx, Options{Method: "websocket", URI: "nas.local", Username: "root"})
	assert.ErrorContains(t, err, "TRUENAS_API_KEY")
}

func TestBaseURL(t *testing.T) {
	for in, want := range map[string]string{
		"https://nas.local":     "wss://nas.local",
		"http://10.0.0.2:8080":  "ws://10.0.0.2:8080",
		"nas.local":             "wss://nas.local",
		"ws://nas.local/ignore": "ws://nas.local/ignore",
	} {
		u, err := baseURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, u.String())
	}

	_, err := baseURL("ftp://nas.local")
	assert.Error(t, err)
}
