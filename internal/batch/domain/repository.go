package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists batches. Transition updates are status-guarded so the
// precondition check and the write are one atomic statement.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, batch *Batch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Batch, error)
	FindOpenByLegalEntity(ctx context.Context, db *gorm.DB, legalEntityID string) (*Batch, error)

	// ClaimTransition flips the batch from one status to the next and stamps
	// the matching timestamp exactly once. It reports false when the batch was
	// not in the expected status.
	ClaimTransition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to BatchStatus, now time.Time) (bool, error)

	UpdateLineCount(ctx context.Context, db *gorm.DB, id snowflake.ID, count int, now time.Time) error

	// UpdateAdvisoryLineCount refreshes the display hint while the batch is
	// still open. Reports false when the batch is no longer OPEN, which the
	// enqueue path uses to detect a lock racing the insert.
	UpdateAdvisoryLineCount(ctx context.Context, db *gorm.DB, id snowflake.ID, count int, now time.Time) (bool, error)
}

// LineRepository persists batch lines.
type LineRepository interface {
	Insert(ctx context.Context, db *gorm.DB, line *BatchLine) error
	ListByBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]BatchLine, error)
	ListByBatchAndStatus(ctx context.Context, db *gorm.DB, batchID snowflake.ID, status LineStatus) ([]BatchLine, error)
	MarkShipped(ctx context.Context, db *gorm.DB, id snowflake.ID, expeditionID string, now time.Time) error
	MarkError(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, now time.Time) error
}
