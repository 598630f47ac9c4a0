// Package repository implements batch and line persistence on gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type batchRepository struct{}

// Provide builds the batch repository.
func Provide() domain.Repository {
	return batchRepository{}
}

func (batchRepository) Insert(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	return db.WithContext(ctx).Create(batch).Error
}

func (batchRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (batchRepository) FindOpenByLegalEntity(ctx context.Context, db *gorm.DB, legalEntityID string) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.WithContext(ctx).
		Where("legal_entity_id = ? AND status = ?", legalEntityID, domain.BatchStatusOpen).
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// transitionColumns maps each target status onto the timestamp it stamps.
var transitionColumns = map[domain.BatchStatus]string{
	domain.BatchStatusLocked:     "locked_at",
	domain.BatchStatusDispatched: "dispatched_at",
	domain.BatchStatusCompleted:  "completed_at",
}

func (batchRepository) ClaimTransition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.BatchStatus, now time.Time) (bool, error) {
	column, ok := transitionColumns[to]
	if !ok {
		return false, fmt.Errorf("no timestamp column for status %s", to)
	}
	result := db.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE fulfillment_batches
			 SET status = ?, %s = COALESCE(%s, ?), updated_at = ?
			 WHERE id = ? AND status = ?`,
			column, column,
		),
		to,
		now,
		now,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (batchRepository) UpdateLineCount(ctx context.Context, db *gorm.DB, id snowflake.ID, count int, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fulfillment_batches SET line_count = ?, updated_at = ? WHERE id = ?`,
		count,
		now,
		id,
	).Error
}

func (batchRepository) UpdateAdvisoryLineCount(ctx context.Context, db *gorm.DB, id snowflake.ID, count int, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE fulfillment_batches SET line_count = ?, updated_at = ? WHERE id = ? AND status = ?`,
		count,
		now,
		id,
		domain.BatchStatusOpen,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type lineRepository struct{}

// ProvideLines builds the batch line repository.
func ProvideLines() domain.LineRepository {
	return lineRepository{}
}

func (lineRepository) Insert(ctx context.Context, db *gorm.DB, line *domain.BatchLine) error {
	return db.WithContext(ctx).Create(line).Error
}

func (lineRepository) ListByBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]domain.BatchLine, error) {
	var lines []domain.BatchLine
	err := db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (lineRepository) ListByBatchAndStatus(ctx context.Context, db *gorm.DB, batchID snowflake.ID, status domain.LineStatus) ([]domain.BatchLine, error) {
	var lines []domain.BatchLine
	err := db.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, status).
		Order("id").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (lineRepository) MarkShipped(ctx context.Context, db *gorm.DB, id snowflake.ID, expeditionID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fulfillment_batch_lines
		 SET status = ?, expedition_id = ?, error_message = '', updated_at = ?
		 WHERE id = ?`,
		domain.LineStatusShipped,
		expeditionID,
		now,
		id,
	).Error
}

func (lineRepository) MarkError(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fulfillment_batch_lines
		 SET status = ?, error_message = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.LineStatusError,
		message,
		now,
		id,
		domain.LineStatusShipped,
	).Error
}
