// Package middleware talks to middlewared, the TrueNAS management daemon.
//
// Three transports are available. "midclt" runs the midclt command on the NAS itself,
// "client" speaks the websocket API over the local middlewared socket and "websocket"
// connects to a remote NAS with an API key or a username and password.
package middleware

import (
	"context"
	"fmt"
	"time"

	"tnctl/constants"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client calls middlewared methods. Results are decoded JSON (maps, slices, float64s,
// strings, bools and nil); use Decode to turn them into structs.
type Client interface {
	// Call runs method with args, each of which is sent as one JSON parameter
	Call(ctx context.Context, method string, args ...any) (any, error)

	// CallString runs method and returns its result as a string
	CallString(ctx context.Context, method string, args ...any) (string, error)

	// Job starts a long-running method and waits for it to finish
	Job(ctx context.Context, method string, args ...any) (any, error)

	Close() error
}

// Options picks and configures a transport
type Options struct {
	Method string

	// Remote websocket only
	URI      string
	APIKey   string
	Username string
	Password string
	Insecure bool

	// Local socket for the "client" method. Defaults to constants.MiddlewareSocket
	Socket string

	// How often to poll core.get_jobs, and for how long at most. Zero timeout waits forever.
	JobPollInterval time.Duration
	JobTimeout      time.Duration

	Logger *zap.SugaredLogger
}

func (o *Options) logger() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// New returns a client for o.Method. An empty method means midclt.
func New(ctx context.Context, o Options) (Client, error) {
	switch o.Method {
	case "", constants.MethodMidclt:
		return NewMidclt(o.logger())
	case constants.MethodClient:
		if o.Socket == "" {
			o.Socket = constants.MiddlewareSocket
		}
		return DialSocket(ctx, o)
	case constants.MethodWebsocket:
		if o.URI == "" {
			return nil, fmt.Errorf("the websocket method needs a URI (TRUENAS_URI)")
		}

		if o.APIKey == "" && (o.Username == "" || o.Password == "") {
			return nil, fmt.Errorf("the websocket method needs TRUENAS_API_KEY or TRUENAS_API_USERNAME and TRUENAS_API_PASSWORD")
		}

		return Dial(ctx, o)
	}

	return nil, fmt.Errorf("unknown middleware method %q", o.Method)
}

// Turns a result into the string CallString returns
func resultString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case nil:
		return "", nil
	}

	b, err := json.Marshal(v)

	if err != nil {
		return "", err
	}

	return string(b), nil
}
