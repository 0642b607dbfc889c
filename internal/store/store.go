// Package store persists per-file detection outcomes. The JSON-file store
// mirrors the batch results document the CLI writes; the Postgres store is the
// durable audit trail for compliance review.
package store

import (
	"context"
	"time"

	"github.com/clearpath-voice/dropgate/internal/detect"
)

// Record is the outcome of processing one audio file. Exactly one of Result
// and Err is meaningful: a non-empty Err marks a file that could not be
// processed at all.
type Record struct {
	// File is the audio file the record belongs to, as given to the CLI.
	File string

	// Result is the detection decision. Zero when Err is set.
	Result detect.DetectionResult

	// Err is the processing failure, empty on success.
	Err string

	// CreatedAt is when the record was persisted. Stores fill it in on Save;
	// callers may leave it zero.
	CreatedAt time.Time
}

// Store persists detection records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists one record.
	Save(ctx context.Context, rec Record) error
}
