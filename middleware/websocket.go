package middleware

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("middleware connection closed")

type pendingCall struct {
	method string
	ch     chan reply
}

// Websocket is a client for the middlewared websocket API. It is safe for concurrent use;
// replies are matched to calls by id.
type Websocket struct {
	conn   *websocket.Conn
	proto  protocol
	logger *zap.SugaredLogger

	pollInterval time.Duration
	jobTimeout   time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingCall
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a remote NAS and logs in. The JSON-RPC endpoint is tried first and the
// legacy websocket endpoint second.
func Dial(ctx context.Context, o Options) (*Websocket, error) {
	base, err := baseURL(o.URI)

	if err != nil {
		return nil, err
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 30 * time.Second,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: o.Insecure},
	}

	return dialFallback(ctx, o, dialer, base)
}

// DialSocket connects to the local middlewared socket. Local root connections need no login.
func DialSocket(ctx context.Context, o Options) (*Websocket, error) {
	socket := o.Socket

	dialer := &websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
	}

	o.APIKey, o.Username, o.Password = "", "", ""

	return dialFallback(ctx, o, dialer, &url.URL{Scheme: "ws", Host: "localhost"})
}

func baseURL(uri string) (*url.URL, error) {
	if !strings.Contains(uri, "://") {
		uri = "wss://" + uri
	}

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("invalid middleware URI %q: %w", uri, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("invalid middleware URI %q: unsupported scheme %s", uri, u.Scheme)
	}

	return u, nil
}

func dialFallback(ctx context.Context, o Options, dialer *websocket.Dialer, base *url.URL) (*Websocket, error) {
	w, err := connect(ctx, o, dialer, base, jsonRPC{})

	if err == nil {
		return w, nil
	}

	o.logger().Debugw("JSON-RPC endpoint failed, trying the legacy websocket API", zap.Error(err))

	w, fallbackErr := connect(ctx, o, dialer, base, ddp{})

	if fallbackErr != nil {
		return nil, fmt.Errorf("primary URI failed: %v, fallback URI failed: %w", err, fallbackErr)
	}

	return w, nil
}

func connect(ctx context.Context, o Options, dialer *websocket.Dialer, base *url.URL, proto protocol) (*Websocket, error) {
	u := *base
	u.Path = proto.path()
	target := u.String()

	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, target, nil)

		if err != nil {
			// The server answered, just not with a websocket. Retrying won't help.
			if resp != nil {
				return nil, backoff.Permanent(fmt.Errorf("%s: %w (HTTP %s)", target, err, resp.Status))
			}
			return nil, fmt.Errorf("%s: %w", target, err)
		}

		return conn, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))

	if err != nil {
		return nil, err
	}

	w := &Websocket{
		conn:         conn,
		proto:        proto,
		logger:       o.logger(),
		pollInterval: o.JobPollInterval,
		jobTimeout:   o.JobTimeout,
		pending:      map[string]*pendingCall{},
		done:         make(chan struct{}),
	}

	if hello := proto.hello(); hello != nil {
		if err := w.write(hello); err != nil {
			conn.Close()
			return nil, err
		}

		if deadline, ok := ctx.Deadline(); ok {
			conn.SetReadDeadline(deadline)
		}

		_, data, err := conn.ReadMessage()

		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s handshake: %w", proto.name(), err)
		}

		conn.SetReadDeadline(time.Time{})

		if err := proto.helloOK(data); err != nil {
			conn.Close()
			return nil, err
		}
	}

	go w.readLoop()

	if err := w.login(ctx, o); err != nil {
		w.Close()
		return nil, err
	}

	w.logger.Debugw("Connected to middlewared", zap.String("url", target), zap.String("protocol", proto.name()))

	return w, nil
}

func (w *Websocket) login(ctx context.Context, o Options) error {
	var ok any
	var err error

	switch {
	case o.APIKey != "":
		ok, err = w.Call(ctx, "auth.login_with_api_key", o.APIKey)
	case o.Username != "":
		ok, err = w.Call(ctx, "auth.login", o.Username, o.Password)
	default:
		return nil
	}

	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if b, _ := ok.(bool); !b {
		return errors.New("login failed: invalid credentials")
	}

	return nil
}

func (w *Websocket) write(v any) error {
	data, err := json.Marshal(v)

	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *Websocket) methodOf(id string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[id]; ok {
		return p.method
	}
	return ""
}

func (w *Websocket) readLoop() {
	for {
		_, data, err := w.conn.ReadMessage()

		if err != nil {
			w.fail(err)
			return
		}

		r, err := w.proto.decode(w.methodOf, data)

		if err != nil {
			w.logger.Warnw("Ignoring bad frame from middlewared", zap.Error(err))
			continue
		}

		if r.ping {
			if err := w.write(map[string]string{"msg": "pong"}); err != nil {
				w.fail(err)
				return
			}
			continue
		}

		if r.id == "" {
			continue
		}

		w.mu.Lock()
		p, ok := w.pending[r.id]
		delete(w.pending, r.id)
		w.mu.Unlock()

		if ok {
			p.ch <- r
		}
	}
}

func (w *Websocket) fail(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()

	w.closeOnce.Do(func() { close(w.done) })
}

func (w *Websocket) Call(ctx context.Context, method string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}

	id := uuid.NewString()
	ch := make(chan reply, 1)

	w.mu.Lock()
	if w.err != nil {
		err := w.err
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	w.pending[id] = &pendingCall{method: method, ch: ch}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
	}()

	if err := w.write(w.proto.request(id, method, args)); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		w.mu.Lock()
		err := w.err
		w.mu.Unlock()
		return nil, fmt.Errorf("%w while calling %s: %v", ErrClosed, method, err)
	case r := <-ch:
		return r.result, r.err
	}
}

func (w *Websocket) CallString(ctx context.Context, method string, args ...any) (string, error) {
	v, err := w.Call(ctx, method, args...)

	if err != nil {
		return "", err
	}

	return resultString(v)
}

// Job starts method, which answers with a job id, then polls core.get_jobs until the
// job finishes
func (w *Websocket) Job(ctx context.Context, method string, args ...any) (any, error) {
	v, err := w.Call(ctx, method, args...)

	if err != nil {
		return nil, err
	}

	id, ok := v.(float64)

	if !ok {
		return nil, fmt.Errorf("%s did not return a job id: %v", method, v)
	}

	return WaitJob(ctx, w, int(id), method, w.pollInterval, w.jobTimeout)
}

func (w *Websocket) Close() error {
	w.fail(ErrClosed)

	w.writeMu.Lock()
	w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	w.writeMu.Unlock()

	return w.conn.Close()
}
