// Package orchestrator turns batches of problem titles into persisted
// artifacts. Titles are processed in fixed-size batches: the titles of one
// batch run concurrently, and a batch starts only after every title of the
// previous one has finished. Every per-title failure is captured in the
// returned Ledger rather than returned as an error.
package orchestrator
