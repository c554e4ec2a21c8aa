// Request logging for chi, on top of zap
package zapchi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger is a chi middleware that logs each request it receives with l.
// The logger is named name, unless name is empty.
func Logger(l *zap.SugaredLogger, name string) func(next http.Handler) http.Handler {
	logger := zap.New(l.Desugar().Core(), zap.AddCallerSkip(1)).Sugar()

	if name != "" {
		logger = logger.Named(name)
	}

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t1 := time.Now()

			reqId := r.Header.Get("X-Request-Id")
			if reqId == "" {
				reqId = uuid.NewString()
			}

			ww.Header().Set("X-Request-Id", reqId)

			next.ServeHTTP(ww, r)

			logger.Infow(
				"Got Request",
				zap.Int("status", ww.Status()),
				zap.String("statusText", http.StatusText(ww.Status())),
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.String("reqIp", r.RemoteAddr),
				zap.String("protocol", r.Proto),
				zap.Int("size", ww.BytesWritten()),
				zap.Duration("latency", time.Since(t1)),
				zap.String("userAgent", r.UserAgent()),
				zap.String("reqId", reqId),
			)
		}
		return http.HandlerFunc(fn)
	}
}
