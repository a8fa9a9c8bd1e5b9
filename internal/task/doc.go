// Package task manages background job queuing, processing, and lifecycle.
// It runs long generation batches outside the HTTP request that asked for
// them, records each job's status and result in a TaskStore, and recovers
// unfinished jobs after a restart.
package task
