package service

import (
	"context"
	"errors"
	"strings"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const enqueueAttempts = 3

// errBatchLockedMidEnqueue rolls back an enqueue whose target batch was
// locked before the pending row could commit.
var errBatchLockedMidEnqueue = errors.New("batch locked while enqueueing candidate")

// HandleSubscriptionCharged enqueues a shipment candidate for the legal
// entity's open batch. Delivery is at-least-once: the pending store keys rows
// by subscription id, so a redelivered event overwrites instead of
// duplicating.
//
// The status-guarded advisory update serializes the enqueue against a
// concurrent lock: it blocks on the batch row until the lock claim commits,
// and affects no row once the batch left OPEN. The transaction then rolls
// back, discarding the pending insert, and the candidate is retried against
// the legal entity's next open batch.
func (s *Service) HandleSubscriptionCharged(ctx context.Context, event domain.SubscriptionChargedEvent) error {
	event, err := s.resolveEvent(ctx, event)
	if err != nil {
		return err
	}

	candidate := domain.ShipmentCandidate{
		SubscriptionID:        event.SubscriptionID,
		ClientID:              event.ClientID,
		ProductID:             event.ProductID,
		Quantity:              event.Quantity,
		TransporteurAccountID: event.TransporteurAccountID,
		ContractID:            event.ContractID,
		ProductName:           event.ProductName,
		WeightKg:              event.WeightKg,
		OrderReference:        event.OrderReference,
	}

	for attempt := 0; attempt < enqueueAttempts; attempt++ {
		batch, err := s.getOrCreateOpen(ctx, event.LegalEntityID, event.OrganisationID)
		if err != nil {
			return err
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.pending.Enqueue(ctx, tx, batch.ID, batch.OrganisationID, candidate); err != nil {
				return err
			}
			count, err := s.pending.CountForBatch(ctx, tx, batch.ID)
			if err != nil {
				return err
			}
			// Display hint only; the authoritative count is written at lock
			// time.
			ok, err := s.batches.UpdateAdvisoryLineCount(ctx, tx, batch.ID, count, s.clk.Now())
			if err != nil {
				return err
			}
			if !ok {
				return errBatchLockedMidEnqueue
			}
			return nil
		})
		if errors.Is(err, errBatchLockedMidEnqueue) {
			s.log.Debug("open batch locked mid-enqueue, retrying",
				zap.String("subscription_id", event.SubscriptionID),
				zap.String("batch_id", batch.ID.String()),
			)
			continue
		}
		if err != nil {
			return err
		}

		s.log.Debug("subscription charge enqueued",
			zap.String("subscription_id", event.SubscriptionID),
			zap.String("legal_entity_id", event.LegalEntityID),
		)
		return nil
	}
	return errBatchLockedMidEnqueue
}

// resolveEvent fills missing fields from the billing source and validates the
// result.
func (s *Service) resolveEvent(ctx context.Context, event domain.SubscriptionChargedEvent) (domain.SubscriptionChargedEvent, error) {
	event.SubscriptionID = strings.TrimSpace(event.SubscriptionID)
	if event.SubscriptionID == "" {
		return event, domain.ErrChargedPayloadInvalid.With(map[string]any{
			"reason": "subscription_id missing",
		})
	}

	if s.incomplete(event) && s.source != nil {
		details, err := s.source.FindBySubscriptionID(ctx, event.SubscriptionID)
		if err != nil {
			return event, err
		}
		if details != nil {
			if event.OrganisationID == "" {
				event.OrganisationID = details.OrganisationID
			}
			if event.LegalEntityID == "" {
				event.LegalEntityID = details.LegalEntityID
			}
			if event.ClientID == "" {
				event.ClientID = details.ClientID
			}
			if event.ProductID == "" {
				event.ProductID = details.ProductID
			}
			if event.Quantity <= 0 {
				event.Quantity = details.Quantity
			}
			if event.TransporteurAccountID == "" {
				event.TransporteurAccountID = details.TransporteurAccountID
			}
			if event.ContractID == "" {
				event.ContractID = details.ContractID
			}
			if event.ProductName == "" {
				event.ProductName = details.ProductName
			}
			if event.WeightKg == 0 {
				event.WeightKg = details.WeightKg
			}
			if event.OrderReference == "" {
				event.OrderReference = details.OrderReference
			}
		}
	}

	missing := make([]string, 0, 4)
	if strings.TrimSpace(event.OrganisationID) == "" {
		missing = append(missing, "organisation_id")
	}
	if strings.TrimSpace(event.LegalEntityID) == "" {
		missing = append(missing, "legal_entity_id")
	}
	if strings.TrimSpace(event.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(event.ProductID) == "" {
		missing = append(missing, "product_id")
	}
	if event.Quantity < 1 {
		missing = append(missing, "quantity")
	}
	if len(missing) > 0 {
		return event, domain.ErrChargedPayloadInvalid.With(map[string]any{
			"subscription_id": event.SubscriptionID,
			"missing":         strings.Join(missing, ","),
		})
	}
	return event, nil
}

func (s *Service) incomplete(event domain.SubscriptionChargedEvent) bool {
	return event.OrganisationID == "" ||
		event.LegalEntityID == "" ||
		event.ClientID == "" ||
		event.ProductID == "" ||
		event.Quantity < 1
}
