package service

import (
	"context"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/HDZ65/crm-final-sub010/internal/expedition"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DispatchBatch hands every line of a locked batch to the expedition bridge.
// The transition is claimed first; line outcomes are then independent, so a
// bridge failure on one line never blocks or rolls back its siblings. Failed
// lines end up ERROR with the failure recorded and can be redispatched out of
// band.
func (s *Service) DispatchBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "DispatchBatch")
	defer span.End()

	id, err := s.parseBatchID(batchID)
	if err != nil {
		return nil, err
	}
	now := s.clk.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.batches.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrBatchNotFound.With(map[string]any{"batch_id": batchID})
		}
		ok, err := s.batches.ClaimTransition(ctx, tx, id, domain.BatchStatusLocked, domain.BatchStatusDispatched, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition.With(map[string]any{
				"batch_id": batchID,
				"status":   batch.Status.String(),
				"expected": domain.BatchStatusLocked.String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	batch, err := s.batches.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.lines.ListByBatch(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	shipped, failed := 0, 0
	for _, line := range lines {
		if line.Status == domain.LineStatusShipped {
			continue
		}
		if err := s.dispatchLine(ctx, batch, line); err != nil {
			failed++
			s.log.Warn("line dispatch failed",
				zap.String("batch_id", batchID),
				zap.String("line_id", line.ID.String()),
				zap.Error(err),
			)
			if markErr := s.lines.MarkError(ctx, s.db, line.ID, err.Error(), s.clk.Now()); markErr != nil {
				return nil, markErr
			}
			continue
		}
		shipped++
	}

	s.log.Info("batch dispatched",
		zap.String("batch_id", batchID),
		zap.Int("shipped", shipped),
		zap.Int("failed", failed),
	)
	return s.batches.FindByID(ctx, s.db, id)
}

// RedispatchFailedLines retries the ERROR lines of an already dispatched
// batch. The batch status does not move; only line outcomes change.
func (s *Service) RedispatchFailedLines(ctx context.Context, batchID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "RedispatchFailedLines")
	defer span.End()

	id, err := s.parseBatchID(batchID)
	if err != nil {
		return 0, err
	}
	batch, err := s.batches.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if batch == nil {
		return 0, domain.ErrBatchNotFound.With(map[string]any{"batch_id": batchID})
	}
	if batch.Status != domain.BatchStatusDispatched {
		return 0, domain.ErrInvalidTransition.With(map[string]any{
			"batch_id": batchID,
			"status":   batch.Status.String(),
			"expected": domain.BatchStatusDispatched.String(),
		})
	}

	lines, err := s.lines.ListByBatchAndStatus(ctx, s.db, id, domain.LineStatusError)
	if err != nil {
		return 0, err
	}

	shipped := 0
	for _, line := range lines {
		if err := s.dispatchLine(ctx, batch, line); err != nil {
			s.log.Warn("line redispatch failed",
				zap.String("batch_id", batchID),
				zap.String("line_id", line.ID.String()),
				zap.Error(err),
			)
			if markErr := s.lines.MarkError(ctx, s.db, line.ID, err.Error(), s.clk.Now()); markErr != nil {
				return shipped, markErr
			}
			continue
		}
		shipped++
	}

	s.log.Info("failed lines redispatched",
		zap.String("batch_id", batchID),
		zap.Int("shipped", shipped),
		zap.Int("remaining", len(lines)-shipped),
	)
	return shipped, nil
}

// dispatchLine builds and sends one expedition request, then marks the line
// SHIPPED and clears any prior error.
func (s *Service) dispatchLine(ctx context.Context, batch *domain.Batch, line domain.BatchLine) error {
	snap, err := s.addrSnap.FindByID(ctx, s.db, line.AddressSnapshotID)
	if err != nil {
		return err
	}
	if snap == nil {
		// A locked line always references an existing snapshot; a miss here
		// means the stored data is corrupt.
		return domain.ErrAddressSnapshotNotFound.With(map[string]any{
			"batch_id":            batch.ID.String(),
			"line_id":             line.ID.String(),
			"address_snapshot_id": line.AddressSnapshotID.String(),
		})
	}

	req, err := expedition.BuildCreateRequest(expedition.BuildInput{
		BatchID:                      batch.ID.String(),
		LineID:                       line.ID.String(),
		Street:                       snap.Street,
		PostalCode:                   snap.PostalCode,
		City:                         snap.City,
		Country:                      snap.Country,
		TransporteurAccountID:        line.TransporteurAccountID,
		ContractID:                   line.ContractID,
		OrderReference:               line.OrderReference,
		ProductID:                    line.ProductID,
		ProductName:                  line.ProductName,
		WeightKg:                     line.WeightKg,
		Quantity:                     line.Quantity,
		DefaultTransporteurAccountID: s.cfg.DefaultTransporteurAccountID,
		DispatchedAt:                 s.clk.Now(),
	})
	if err != nil {
		return err
	}

	exp, err := s.bridge.CreateExpedition(ctx, req)
	if err != nil {
		return err
	}
	return s.lines.MarkShipped(ctx, s.db, line.ID, exp.ID, s.clk.Now())
}
