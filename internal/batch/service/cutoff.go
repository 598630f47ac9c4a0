package service

import (
	"context"
	"errors"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"go.uber.org/zap"
)

// RunCutoffJob locks every OPEN batch of the organisation whose active cutoff
// configuration has been reached at referenceTime. Legal entities without an
// OPEN batch are skipped silently.
func (s *Service) RunCutoffJob(ctx context.Context, orgID string, referenceTime time.Time) ([]domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "RunCutoffJob")
	defer span.End()

	configs, err := s.cutoffs.ListActiveByOrganisation(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	locked := make([]domain.Batch, 0)
	for _, cfg := range configs {
		reached, err := cfg.Reached(referenceTime)
		if err != nil {
			return nil, err
		}
		if !reached {
			continue
		}

		open, err := s.batches.FindOpenByLegalEntity(ctx, s.db, cfg.LegalEntityID)
		if err != nil {
			return nil, err
		}
		if open == nil {
			continue
		}

		batch, err := s.LockBatch(ctx, open.ID.String())
		if err != nil {
			// Another caller locked the batch first; nothing left to do for
			// this legal entity.
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			return nil, err
		}
		locked = append(locked, *batch)
		s.log.Info("cutoff reached, batch locked",
			zap.String("legal_entity_id", cfg.LegalEntityID),
			zap.String("batch_id", batch.ID.String()),
		)
	}
	return locked, nil
}
