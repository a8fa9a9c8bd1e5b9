package orchestrator

import (
	"fmt"
	"sync"
)

// Status summarises a ledger.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Ledger is the outcome of one Generate call. Completed+Failed always equals
// Total, and every failed title contributes exactly one "<title>: <reason>"
// entry to Errors. Entry order follows completion order.
type Ledger struct {
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// Status derives the overall outcome from the counters.
func (l Ledger) Status() Status {
	switch {
	case l.Failed == 0:
		return StatusSuccess
	case l.Completed == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Report is the serialised form of a ledger, carrying its derived status.
type Report struct {
	Status Status `json:"status"`
	Ledger
}

// Report returns the ledger with its status attached.
func (l Ledger) Report() Report {
	return Report{Status: l.Status(), Ledger: l}
}

// recorder accumulates outcomes from concurrently running titles.
type recorder struct {
	mu     sync.Mutex
	ledger Ledger
}

func newRecorder(total int) *recorder {
	return &recorder{ledger: Ledger{Total: total, Errors: []string{}}}
}

func (r *recorder) succeed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledger.Completed++
}

func (r *recorder) fail(label, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledger.Failed++
	r.ledger.Errors = append(r.ledger.Errors, fmt.Sprintf("%s: %s", label, reason))
}

func (r *recorder) snapshot() Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.ledger
	l.Errors = append([]string{}, r.ledger.Errors...)
	return l
}
