package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/codeforge-api/internal/domain"
	"github.com/phrazzld/codeforge-api/internal/platform/logger"
	"github.com/phrazzld/codeforge-api/internal/store"
)

const artifactEntity = "artifact"

const artifactColumns = `id, title, difficulty, topics, description, example, solution, steps, pseudocode, created_at, updated_at`

// PostgresArtifactStore implements the store.ArtifactStore interface
// using a PostgreSQL database as the storage backend.
type PostgresArtifactStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure PostgresArtifactStore implements store.ArtifactStore interface
var _ store.ArtifactStore = (*PostgresArtifactStore)(nil)

// NewPostgresArtifactStore creates a new PostgreSQL implementation of the ArtifactStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresArtifactStore(db *sql.DB, logger *slog.Logger) *PostgresArtifactStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArtifactStore{
		db:     db,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

// Save implements store.ArtifactWriter.Save.
// Any other row holding the same title is removed in the same transaction
// before the upsert, so the last writer wins and no reader ever sees two
// rows for one title.
func (s *PostgresArtifactStore) Save(ctx context.Context, a *domain.Artifact) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if a == nil {
		return store.NewStoreError(artifactEntity, "save", "artifact is nil", store.ErrInvalidEntity)
	}

	if err := a.Validate(); err != nil {
		log.Warn("artifact validation failed during save",
			slog.String("error", err.Error()),
			slog.String("artifact_id", a.ID.String()))
		return store.NewStoreError(artifactEntity, "save", "validation failed",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	row, err := encodeArtifact(a)
	if err != nil {
		return store.NewStoreError(artifactEntity, "save", "failed to encode artifact", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return saveArtifact(ctx, tx, row)
	})
	if err != nil {
		log.Error("failed to save artifact",
			slog.String("error", err.Error()),
			slog.String("artifact_id", a.ID.String()))
		return store.NewStoreError(artifactEntity, "save", "database error", MapError(err))
	}

	log.Info("artifact saved successfully",
		slog.String("artifact_id", a.ID.String()),
		slog.String("difficulty", string(a.Difficulty)))
	return nil
}

// titleLockQuery serialises saves of one title until the transaction ends.
// Without it two concurrent saves both find nothing to replace and the
// second insert violates the title constraint.
const titleLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

func saveArtifact(ctx context.Context, db store.DBTX, row artifactRow) error {
	if _, err := db.ExecContext(ctx, titleLockQuery, row.Title); err != nil {
		return fmt.Errorf("failed to lock artifact title: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE title = $1 AND id <> $2`,
		row.Title, row.ID,
	); err != nil {
		return fmt.Errorf("failed to replace artifact with same title: %w", err)
	}

	query := `
		INSERT INTO artifacts (` + artifactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			difficulty = EXCLUDED.difficulty,
			topics = EXCLUDED.topics,
			description = EXCLUDED.description,
			example = EXCLUDED.example,
			solution = EXCLUDED.solution,
			steps = EXCLUDED.steps,
			pseudocode = EXCLUDED.pseudocode,
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		row.ID,
		row.Title,
		row.Difficulty,
		row.Topics,
		row.Description,
		row.Example,
		row.Solution,
		row.Steps,
		row.Pseudocode,
		row.CreatedAt,
		row.UpdatedAt,
	)
	return err
}

// GetByID implements store.ArtifactReader.GetByID.
// Returns store.ErrArtifactNotFound if the artifact does not exist.
func (s *PostgresArtifactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = $1`

	artifact, err := scanArtifact(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("artifact not found", slog.String("artifact_id", id.String()))
			return nil, store.ErrArtifactNotFound
		}
		log.Error("failed to get artifact by ID",
			slog.String("error", err.Error()),
			slog.String("artifact_id", id.String()))
		return nil, store.NewStoreError(artifactEntity, "get", "database error", MapError(err))
	}

	return artifact, nil
}

// List implements store.ArtifactReader.List.
func (s *PostgresArtifactStore) List(ctx context.Context) ([]*domain.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts ORDER BY created_at DESC, id`
	return s.query(ctx, "list", query)
}

// Search implements store.ArtifactReader.Search. LIKE wildcards in term
// match literally.
func (s *PostgresArtifactStore) Search(ctx context.Context, term string) ([]*domain.Artifact, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC, id
	`
	return s.query(ctx, "search", query, "%"+likeEscaper.Replace(term)+"%")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *PostgresArtifactStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query artifacts", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError(artifactEntity, op, "database error", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	artifacts := []*domain.Artifact{}
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			log.Error("failed to scan artifact row", slog.String("operation", op), slog.String("error", err.Error()))
			return nil, store.NewStoreError(artifactEntity, op, "failed to scan row", err)
		}
		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating artifact rows", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError(artifactEntity, op, "database error", MapError(err))
	}

	log.Debug("artifacts retrieved", slog.String("operation", op), slog.Int("count", len(artifacts)))
	return artifacts, nil
}

// CountByDifficulty implements store.ArtifactReader.CountByDifficulty.
func (s *PostgresArtifactStore) CountByDifficulty(ctx context.Context) (map[domain.Difficulty]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT difficulty, COUNT(*) FROM artifacts GROUP BY difficulty`)
	if err != nil {
		log.Error("failed to count artifacts", slog.String("error", err.Error()))
		return nil, store.NewStoreError(artifactEntity, "count", "database error", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := store.EmptyCounts()
	for rows.Next() {
		var difficulty string
		var count int
		if err := rows.Scan(&difficulty, &count); err != nil {
			return nil, store.NewStoreError(artifactEntity, "count", "failed to scan row", err)
		}
		counts[domain.Difficulty(difficulty)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError(artifactEntity, "count", "database error", MapError(err))
	}

	return counts, nil
}

// Delete implements store.ArtifactStore.Delete.
// Returns store.ErrArtifactNotFound if the artifact does not exist.
func (s *PostgresArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete artifact",
			slog.String("error", err.Error()),
			slog.String("artifact_id", id.String()))
		return store.NewStoreError(artifactEntity, "delete", "database error", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrArtifactNotFound); err != nil {
		if errors.Is(err, store.ErrArtifactNotFound) {
			return err
		}
		return store.NewStoreError(artifactEntity, "delete", "database error", err)
	}

	log.Info("artifact deleted successfully", slog.String("artifact_id", id.String()))
	return nil
}

// artifactRow is an artifact with its list and object fields encoded as JSON.
type artifactRow struct {
	ID          uuid.UUID
	Title       string
	Difficulty  string
	Topics      string
	Description string
	Example     string
	Solution    string
	Steps       string
	Pseudocode  *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func encodeArtifact(a *domain.Artifact) (artifactRow, error) {
	row := artifactRow{
		ID:          a.ID,
		Title:       a.Title,
		Difficulty:  string(a.Difficulty),
		Description: a.Description,
		Solution:    a.Solution,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}

	var err error
	if row.Topics, err = encodeJSON(a.Topics); err != nil {
		return row, err
	}
	if row.Example, err = encodeJSON(a.Example); err != nil {
		return row, err
	}
	if row.Steps, err = encodeJSON(a.Steps); err != nil {
		return row, err
	}
	if a.Pseudocode != nil {
		pseudocode, err := encodeJSON(a.Pseudocode)
		if err != nil {
			return row, err
		}
		row.Pseudocode = &pseudocode
	}

	return row, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(b), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(r rowScanner) (*domain.Artifact, error) {
	var (
		a                              domain.Artifact
		difficulty                     string
		topics, example, steps, pseudo []byte
		updatedAt                      sql.NullTime
	)

	if err := r.Scan(
		&a.ID,
		&a.Title,
		&difficulty,
		&topics,
		&a.Description,
		&example,
		&a.Solution,
		&steps,
		&pseudo,
		&a.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	a.Difficulty = domain.Difficulty(difficulty)
	a.CreatedAt = a.CreatedAt.UTC()
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		a.UpdatedAt = &t
	}

	if err := json.Unmarshal(topics, &a.Topics); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	if err := json.Unmarshal(example, &a.Example); err != nil {
		return nil, fmt.Errorf("failed to decode example: %w", err)
	}
	if err := json.Unmarshal(steps, &a.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}
	if len(pseudo) > 0 {
		if err := json.Unmarshal(pseudo, &a.Pseudocode); err != nil {
			return nil, fmt.Errorf("failed to decode pseudocode: %w", err)
		}
	}

	return &a, nil
}
