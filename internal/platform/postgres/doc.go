// Package postgres provides the PostgreSQL implementations of the
// persistence interfaces defined in internal/store and internal/task, and
// the embedded goose migrations that create their schema.
//
// Connections go through database/sql with the pgx stdlib driver
// registered as "pgx". List-valued artifact fields are stored as JSONB.
package postgres
