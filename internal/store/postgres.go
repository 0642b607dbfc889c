package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clearpath-voice/dropgate/internal/detect"
)

// Schema is the SQL DDL for the detection_results table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS detection_results (
    id             BIGSERIAL PRIMARY KEY,
    file           TEXT NOT NULL,
    drop_timestamp DOUBLE PRECISION NOT NULL DEFAULT 0,
    reason         TEXT NOT NULL DEFAULT '',
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
    methods        JSONB NOT NULL DEFAULT '[]',
    compliance     TEXT NOT NULL DEFAULT '',
    details        JSONB NOT NULL DEFAULT '{}',
    error          TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_detection_results_file ON detection_results(file);
CREATE INDEX IF NOT EXISTS idx_detection_results_created ON detection_results(created_at);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Each Save
// appends a row; the table is the append-only audit trail, so there are no
// update or delete operations.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// detection_results table and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Save appends one record.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	methodsJSON, err := json.Marshal(emptyMethods(rec.Result.MethodsUsed))
	if err != nil {
		return fmt.Errorf("store: marshal methods: %w", err)
	}
	detailsJSON, err := json.Marshal(emptyDetails(rec.Result.Details))
	if err != nil {
		return fmt.Errorf("store: marshal details: %w", err)
	}

	const query = `
		INSERT INTO detection_results (
			file, drop_timestamp, reason, confidence, methods, compliance, details, error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = s.db.Exec(ctx, query,
		rec.File, rec.Result.DropTimestamp, string(rec.Result.Reason),
		rec.Result.Confidence, methodsJSON, string(rec.Result.ComplianceStatus),
		detailsJSON, rec.Err,
	)
	if err != nil {
		return fmt.Errorf("store: save %q: %w", rec.File, err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	const query = `
		SELECT file, drop_timestamp, reason, confidence, methods, compliance, details, error, created_at
		FROM detection_results
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec                      Record
			reason, compliance       string
			methodsJSON, detailsJSON []byte
		)
		if err := rows.Scan(
			&rec.File, &rec.Result.DropTimestamp, &reason, &rec.Result.Confidence,
			&methodsJSON, &compliance, &detailsJSON, &rec.Err, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		rec.Result.Reason = detect.Reason(reason)
		rec.Result.ComplianceStatus = detect.ComplianceStatus(compliance)
		if err := json.Unmarshal(methodsJSON, &rec.Result.MethodsUsed); err != nil {
			return nil, fmt.Errorf("store: unmarshal methods: %w", err)
		}
		if err := json.Unmarshal(detailsJSON, &rec.Result.Details); err != nil {
			return nil, fmt.Errorf("store: unmarshal details: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	return recs, nil
}

// emptyMethods returns m if non-nil, otherwise an empty non-nil slice. This
// ensures JSON marshalling produces "[]" instead of "null".
func emptyMethods(m []detect.Method) []detect.Method {
	if m == nil {
		return []detect.Method{}
	}
	return m
}

// emptyDetails returns d if non-nil, otherwise an empty non-nil map. This
// ensures JSON marshalling produces "{}" instead of "null".
func emptyDetails(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}
