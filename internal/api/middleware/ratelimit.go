package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/codeforge-api/internal/api/shared"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/ratelimit"
)

// Rate limit response headers
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Admitter decides whether a client may make another request of a class.
// It is satisfied by *ratelimit.Limiter.
type Admitter interface {
	Admit(clientID string, class ratelimit.Class) ratelimit.Decision
}

// ClientIP identifies clients by the host part of RemoteAddr. Put chi's
// RealIP middleware in front when running behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the class budget with 429 Too Many
// Requests. Responses carry the X-RateLimit-* headers of the class.
func RateLimit(limiter Admitter, class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)
			decision := limiter.Admit(client, class)

			h := w.Header()
			// Classes without a rule report no budget.
			if decision.Limit > 0 {
				h.Set(HeaderLimit, strconv.Itoa(decision.Limit))
				h.Set(HeaderRemaining, strconv.Itoa(decision.Remaining))
				h.Set(HeaderReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				wait := max(1, int(math.Ceil(time.Until(decision.ResetAt).Seconds())))
				h.Set(HeaderRetryAfter, strconv.Itoa(wait))

				logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("rate limit exceeded",
					slog.String("client", client),
					slog.String("class", string(class)))
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
					"Too many requests, please try again later", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
