package service

import (
	"context"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	snapshotdomain "github.com/HDZ65/crm-final-sub010/internal/snapshot/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LockBatch freezes the batch: claims the OPEN->LOCKED transition, reconciles
// due and pending candidates, snapshots each candidate's address and
// preferences, and creates one TO_PREPARE line per candidate. Everything runs
// in one transaction so a concurrent lock on the same batch either blocks and
// then sees LOCKED, or never observes a half-built batch.
func (s *Service) LockBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "LockBatch")
	defer span.End()

	id, err := s.parseBatchID(batchID)
	if err != nil {
		return nil, err
	}
	now := s.clk.Now()

	var lineCount int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.batches.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrBatchNotFound.With(map[string]any{"batch_id": batchID})
		}

		ok, err := s.batches.ClaimTransition(ctx, tx, id, domain.BatchStatusOpen, domain.BatchStatusLocked, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition.With(map[string]any{
				"batch_id": batchID,
				"status":   batch.Status.String(),
				"expected": domain.BatchStatusOpen.String(),
			})
		}

		due, err := s.source.ListDue(ctx, batch.OrganisationID, batch.LegalEntityID, batch.BatchDate)
		if err != nil {
			return err
		}
		pendingCandidates, err := s.pending.Claim(ctx, tx, id)
		if err != nil {
			return err
		}
		candidates := domain.MergeCandidates(due, pendingCandidates)

		for _, candidate := range candidates {
			if err := s.captureLine(ctx, tx, batch, candidate); err != nil {
				return err
			}
		}
		lineCount = len(candidates)
		return s.batches.UpdateLineCount(ctx, tx, id, lineCount, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("batch locked",
		zap.String("batch_id", batchID),
		zap.Int("line_count", lineCount),
	)
	return s.batches.FindByID(ctx, s.db, id)
}

// captureLine freezes one candidate: both snapshots plus the line that
// references them, carrying the dispatch metadata for later.
func (s *Service) captureLine(ctx context.Context, tx *gorm.DB, batch *domain.Batch, candidate domain.ShipmentCandidate) error {
	now := s.clk.Now()

	address, err := s.addresses.GetClientAddress(ctx, batch.OrganisationID, candidate.ClientID)
	if err != nil {
		return err
	}
	if address == nil {
		return domain.ErrClientAddressNotFound.With(map[string]any{
			"client_id":       candidate.ClientID,
			"subscription_id": candidate.SubscriptionID,
		})
	}
	preferences, err := s.preferences.GetSubscriptionPreferences(ctx, batch.OrganisationID, candidate.SubscriptionID)
	if err != nil {
		return err
	}

	addrSnap := &snapshotdomain.AddressSnapshot{
		ID:             s.genID.Generate(),
		OrganisationID: batch.OrganisationID,
		ClientID:       candidate.ClientID,
		Street:         address.Street,
		PostalCode:     address.PostalCode,
		City:           address.City,
		Country:        address.Country,
		CapturedAt:     now,
		CreatedAt:      now,
	}
	if err := s.addrSnap.Insert(ctx, tx, addrSnap); err != nil {
		return err
	}

	prefSnap := &snapshotdomain.PreferenceSnapshot{
		ID:             s.genID.Generate(),
		OrganisationID: batch.OrganisationID,
		SubscriptionID: candidate.SubscriptionID,
		Preferences:    datatypes.JSONMap(preferences),
		CapturedAt:     now,
		CreatedAt:      now,
	}
	if err := s.prefSnap.Insert(ctx, tx, prefSnap); err != nil {
		return err
	}

	quantity := candidate.Quantity
	if quantity < 1 {
		quantity = 1
	}
	line := &domain.BatchLine{
		ID:                    s.genID.Generate(),
		OrganisationID:        batch.OrganisationID,
		BatchID:               batch.ID,
		SubscriptionID:        candidate.SubscriptionID,
		ClientID:              candidate.ClientID,
		ProductID:             candidate.ProductID,
		Quantity:              quantity,
		AddressSnapshotID:     addrSnap.ID,
		PreferenceSnapshotID:  prefSnap.ID,
		Status:                domain.LineStatusToPrepare,
		TransporteurAccountID: candidate.TransporteurAccountID,
		ContractID:            candidate.ContractID,
		ProductName:           candidate.ProductName,
		WeightKg:              candidate.WeightKg,
		OrderReference:        candidate.OrderReference,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	return s.lines.Insert(ctx, tx, line)
}
