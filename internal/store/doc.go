// Package store defines the persistence contract for generated artifacts.
// The interfaces here abstract the underlying storage mechanism from the
// orchestration and API layers; implementations live under
// internal/platform (postgres for production, memstore for development
// and tests).
package store
