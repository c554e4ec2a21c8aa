// Package server is the documentation server: the rendered changelog, the manifest as JSON
// and its lint status, over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tnctl/api"
	"tnctl/constants"
	"tnctl/docs"
	"tnctl/routes/changelog"
	"tnctl/routes/diagnostics"
	"tnctl/state"
	"tnctl/zapchi"

	"github.com/cloudflare/tableflip"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD")

		if r.Method == "OPTIONS" {
			w.Write([]byte{})
			return
		}

		w.Header().Set("Content-Type", "application/json")

		next.ServeHTTP(w, r)
	})
}

// New builds the router with every route mounted
func New() (*chi.Mux, error) {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.CleanPath,
		corsMiddleware,
		zapchi.Logger(state.Logger, "api"),
		middleware.Timeout(time.Duration(state.Config.Server.Timeout)*time.Second),
	)

	routers := []api.APIRouter{
		// Use same order as routes folder
		changelog.Router{},
		diagnostics.Router{},
	}

	for _, router := range routers {
		name, desc := router.Tag()
		if name == "" {
			panic("Router tag name cannot be empty")
		}

		docs.AddTag(name, desc)
		api.CurrentTag = name

		router.Routes(r)
	}

	// Marshalled once here to avoid doing it on every request
	openapi, err := json.Marshal(docs.GetSchema())

	if err != nil {
		return nil, err
	}

	r.Get("/openapi", func(w http.ResponseWriter, r *http.Request) {
		w.Write(openapi)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(constants.NotFoundPage))
	})

	return r, nil
}

// Serve listens on the configured address until ctx is done or a stop signal arrives.
// The upgrade signal starts a new copy of the binary, which takes over the listener
// before this one exits.
func Serve(ctx context.Context) error {
	cfg := state.Config.Server

	upg, err := tableflip.New(tableflip.Options{
		PIDFile: cfg.PIDFile,
	})

	if err != nil {
		return err
	}

	defer upg.Stop()

	upgradeSig := syscall.SIGHUP
	if cfg.UpgradeOn == "SIGUSR2" {
		upgradeSig = syscall.SIGUSR2
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, upgradeSig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)

		for {
			select {
			case <-ctx.Done():
				upg.Stop()
				return
			case s := <-sig:
				if s != upgradeSig {
					state.Logger.Infow("Stopping", zap.String("signal", s.String()))
					upg.Stop()
					return
				}

				state.Logger.Info("Upgrading")

				if err := upg.Upgrade(); err != nil {
					state.Logger.Errorw("Upgrade failed", zap.Error(err))
				}
			}
		}
	}()

	r, err := New()

	if err != nil {
		return err
	}

	ln, err := upg.Listen("tcp", cfg.Listen)

	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := srv.Serve(ln)

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			state.Logger.Errorw("Server failed", zap.Error(err))
			state.Report(err)
		}
	}()

	state.Logger.Infow("Listening", zap.String("addr", ln.Addr().String()))

	if err := upg.Ready(); err != nil {
		return err
	}

	<-upg.Exit()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
