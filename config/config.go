package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"tnctl/constants"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Middleware Middleware `yaml:"middleware" validate:"required"`
	Changelog  Changelog  `yaml:"changelog" validate:"required"`
	Server     Server     `yaml:"server" validate:"required"`
	Meta       Meta       `yaml:"meta" validate:"required"`
}

type Middleware struct {
	Method          string `yaml:"method" default:"midclt" comment:"How to reach middlewared: midclt, client or websocket" env:"middleware_method" validate:"oneof=midclt client websocket"`
	URI             string `yaml:"uri" default:"" comment:"URL of a remote NAS, for the websocket method" env:"TRUENAS_URI" validate:"omitempty,url" required:"false"`
	APIKey          string `yaml:"api_key" default:"" comment:"API key for the websocket method" env:"TRUENAS_API_KEY" required:"false"`
	Username        string `yaml:"username" default:"" comment:"Username for the websocket method, if no API key is set" env:"TRUENAS_API_USERNAME" required:"false"`
	Password        string `yaml:"password" default:"" comment:"Password for the websocket method, if no API key is set" env:"TRUENAS_API_PASSWORD" required:"false"`
	Insecure        bool   `yaml:"insecure" default:"false" comment:"Skip TLS certificate checks" required:"false"`
	Socket          string `yaml:"socket" default:"/var/run/middleware/middlewared.sock" comment:"middlewared socket, for the client method"`
	JobPollInterval int    `yaml:"job_poll_interval" default:"1" comment:"Seconds between job status checks" validate:"min=1"`
	JobTimeout      int    `yaml:"job_timeout" default:"0" comment:"Seconds to wait for a job, 0 waits forever" validate:"min=0" required:"false"`
}

type Changelog struct {
	Path   string `yaml:"path" default:"changelogs/changelog.yaml" comment:"Changelog manifest" validate:"required"`
	Config string `yaml:"config" default:"changelogs/config.yaml" comment:"Changelog generation settings, defaults are used if missing"`
}

type Server struct {
	Listen    string `yaml:"listen" default:":8081" comment:"Address the documentation server listens on" env:"TNCTL_LISTEN" validate:"required"`
	PIDFile   string `yaml:"pid_file" default:"" comment:"PID file written once the server is ready, for graceful upgrades" required:"false"`
	Timeout   int    `yaml:"timeout" default:"30" comment:"Request timeout in seconds" validate:"min=1"`
	UpgradeOn string `yaml:"upgrade_on" default:"SIGHUP" comment:"Signal that triggers a graceful upgrade" validate:"oneof=SIGHUP SIGUSR2"`
}

type Meta struct {
	LogLevel  string `yaml:"log_level" default:"info" comment:"Log level: debug, info, warn or error" env:"TNCTL_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogJSON   bool   `yaml:"log_json" default:"false" comment:"Log as JSON instead of for humans" required:"false"`
	SentryDSN string `yaml:"sentry_dsn" default:"" comment:"Sentry DSN, errors are reported when set" env:"TNCTL_SENTRY_DSN" required:"false"`
}

// Default returns a config holding the values of every default tag
func Default() *Config {
	cfg := &Config{}

	if err := setDefaults(reflect.ValueOf(cfg).Elem()); err != nil {
		panic(err)
	}

	return cfg
}

func setDefaults(v reflect.Value) error {
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		sf := v.Type().Field(i)

		if f.Kind() == reflect.Struct {
			if err := setDefaults(f); err != nil {
				return err
			}
			continue
		}

		def, ok := sf.Tag.Lookup("default")

		if !ok || def == "" {
			continue
		}

		switch f.Kind() {
		case reflect.String:
			f.SetString(def)
		case reflect.Bool:
			b, err := strconv.ParseBool(def)
			if err != nil {
				return fmt.Errorf("bad default for %s: %w", sf.Name, err)
			}
			f.SetBool(b)
		case reflect.Int:
			n, err := strconv.Atoi(def)
			if err != nil {
				return fmt.Errorf("bad default for %s: %w", sf.Name, err)
			}
			f.SetInt(int64(n))
		case reflect.Slice:
			f.Set(reflect.ValueOf(strings.Split(def, ",")))
		default:
			return fmt.Errorf("unsupported default on %s (%s)", sf.Name, f.Kind())
		}
	}

	return nil
}

// Load reads the config in path over the defaults, then applies environment variables.
// A missing file is not an error when path is the default one.
func Load(path string, v *validator.Validate) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == constants.DefaultConfigFile:
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configError: %w", err)
	}

	if cfg.Middleware.Method == constants.MethodWebsocket && cfg.Middleware.URI == "" {
		return nil, errors.New("configError: middleware.uri (TRUENAS_URI) is required for the websocket method")
	}

	return cfg, nil
}
