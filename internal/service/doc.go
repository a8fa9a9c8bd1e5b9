// Package service contains the application-specific use cases that sit
// between the HTTP API and the infrastructure packages.
//
// ProblemService generates problems (synchronously through the orchestrator
// or as background jobs through the task runner) and serves the stored
// problems. CachedArtifactStore puts the result cache in front of an
// artifact store so repeated reads do not reach the database.
//
// The service layer depends on interfaces (store.ArtifactStore and the small
// interfaces declared here), never on a specific storage implementation.
package service
