package state

import (
	"context"
	"fmt"
	"os"
	"time"

	"tnctl/config"
	"tnctl/middleware"
	"tnctl/validators"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Silent until Setup runs, so packages can log from tests
	Logger    = zap.NewNop().Sugar()
	Context   = context.Background()
	Validator = validators.New()

	Config = config.Default()

	sentryEnabled bool
)

func createZap(level string, asJSON bool) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)

	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if asJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)

	return zap.New(core, zap.AddCaller()).Sugar(), nil
}

// Setup loads the config at path and sets up logging and error reporting from it
func Setup(path string) error {
	cfg, err := config.Load(path, Validator)

	if err != nil {
		return err
	}

	Config = cfg

	Logger, err = createZap(Config.Meta.LogLevel, Config.Meta.LogJSON)

	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	if Config.Meta.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              Config.Meta.SentryDSN,
			AttachStacktrace: true,
		})

		if err != nil {
			return fmt.Errorf("failed to set up sentry: %w", err)
		}

		sentryEnabled = true
	}

	return nil
}

// Report sends err to Sentry, if it is set up
func Report(err error) {
	if err == nil || !sentryEnabled {
		return
	}

	sentry.CaptureException(err)
}

// Close flushes whatever Setup opened
func Close() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}

	Logger.Sync()
}

// NewMiddleware connects to middlewared the way the config says to
func NewMiddleware(ctx context.Context) (middleware.Client, error) {
	m := Config.Middleware

	return middleware.New(ctx, middleware.Options{
		Method:          m.Method,
		URI:             m.URI,
		APIKey:          m.APIKey,
		Username:        m.Username,
		Password:        m.Password,
		Insecure:        m.Insecure,
		Socket:          m.Socket,
		JobPollInterval: time.Duration(m.JobPollInterval) * time.Second,
		JobTimeout:      time.Duration(m.JobTimeout) * time.Second,
		Logger:          Logger.Named("middleware"),
	})
}
