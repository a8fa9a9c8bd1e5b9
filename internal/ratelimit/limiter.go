package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Class names an independent request budget.
type Class string

// Built-in limiter classes
const (
	ClassAPI        Class = "api"
	ClassChat       Class = "chat"
	ClassGeneration Class = "generation"
)

// Rule allows at most Max requests per client within any trailing Window.
type Rule struct {
	Window time.Duration
	Max    int
}

// DefaultRules returns the reference budgets: generation is the tightest,
// chat sits between generation and the general api class.
func DefaultRules() map[Class]Rule {
	return map[Class]Rule{
		ClassAPI:        {Window: 15 * time.Minute, Max: 100},
		ClassChat:       {Window: time.Minute, Max: 30},
		ClassGeneration: {Window: time.Minute, Max: 5},
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter tracks request timestamps per class and client.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	rules   map[Class]Rule
	windows map[Class]map[string][]time.Time
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the limiter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter enforcing rules. Classes without a rule are never limited.
func New(rules map[Class]Rule, opts ...Option) *Limiter {
	l := &Limiter{
		rules:   make(map[Class]Rule, len(rules)),
		windows: make(map[Class]map[string][]time.Time, len(rules)),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for class, rule := range rules {
		l.rules[class] = rule
		l.windows[class] = make(map[string][]time.Time)
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "rate_limiter")
	return l
}

// Admit records a request from clientID against class if the client still
// has budget. The request is admitted only when the number of requests in the
// trailing window is strictly below the class maximum; rejected requests are
// not recorded. Admit never blocks on anything but the internal mutex.
func (l *Limiter) Admit(clientID string, class Class) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[class]
	if !ok {
		l.logger.Debug("no rule configured for class, admitting", "class", string(class))
		return Decision{Allowed: true, Remaining: -1, ResetAt: now}
	}

	clients := l.windows[class]
	stamps := prune(clients[clientID], now.Add(-rule.Window))

	decision := Decision{Limit: rule.Max}
	if len(stamps) < rule.Max {
		stamps = append(stamps, now)
		decision.Allowed = true
	}

	if len(stamps) == 0 {
		delete(clients, clientID)
	} else {
		clients[clientID] = stamps
	}

	decision.Remaining = rule.Max - len(stamps)
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if len(stamps) > 0 {
		decision.ResetAt = stamps[0].Add(rule.Window)
	} else {
		decision.ResetAt = now.Add(rule.Window)
	}

	return decision
}

// prune drops timestamps older than cutoff. Timestamps are appended in
// order, so everything before the first retained stamp is stale.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0:0], stamps[i:]...)
}

// Sweep removes client records that have been idle for at least two window
// lengths and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for class, clients := range l.windows {
		idleCutoff := now.Add(-2 * l.rules[class].Window)
		for clientID, stamps := range clients {
			if len(stamps) == 0 || stamps[len(stamps)-1].Before(idleCutoff) {
				delete(clients, clientID)
				removed++
			}
		}
	}
	return removed
}

// Clients returns the number of tracked client records for class.
func (l *Limiter) Clients(class Class) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows[class])
}

// Run sweeps idle records every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				l.logger.Debug("swept idle rate limit records", "removed", removed)
			}
		}
	}
}
