package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/codeforge-api/internal/api/shared"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
)

// Trace returns middleware that assigns every request a trace ID and a
// request-scoped logger carrying it. A well-formed X-Trace-ID from the
// client is kept; the ID is echoed in the response header.
//
// Apply it early so later handlers and error responses can use the ID.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context(), r.Header.Get(shared.TraceIDHeader))
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(shared.TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
