package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// ContextKey is the type of request context keys set by this package
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries the trace ID on requests and responses
	TraceIDHeader = "X-Trace-ID"

	// TraceIDLength is the number of random bytes in a generated trace ID
	TraceIDLength = 16
)

// Incoming trace IDs are accepted only in the shape this package generates,
// so arbitrary client input never reaches the logs.
var traceIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// SetTraceID stores traceID in ctx, generating a new one when traceID is
// not a well-formed trace ID.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if !ValidTraceID(traceID) {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// ValidTraceID reports whether s looks like a generated trace ID.
func ValidTraceID(s string) bool {
	return traceIDPattern.MatchString(s)
}

// NewTraceID returns a random 32-character hex trace ID.
func NewTraceID() string {
	b := make([]byte, TraceIDLength)
	if _, err := rand.Read(b); err != nil {
		// Time-based IDs still correlate one request's log lines.
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
