// Package service implements the batch lifecycle orchestrator.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/HDZ65/crm-final-sub010/internal/batch/pending"
	"github.com/HDZ65/crm-final-sub010/internal/clock"
	"github.com/HDZ65/crm-final-sub010/internal/config"
	cutoffdomain "github.com/HDZ65/crm-final-sub010/internal/cutoff/domain"
	expeditiondomain "github.com/HDZ65/crm-final-sub010/internal/expedition/domain"
	snapshotdomain "github.com/HDZ65/crm-final-sub010/internal/snapshot/domain"
	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const orgResolutionTTL = 5 * time.Minute

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config

	Batches  domain.Repository
	Lines    domain.LineRepository
	Pending  *pending.Store
	Cutoffs  cutoffdomain.Repository
	AddrSnap snapshotdomain.AddressRepository
	PrefSnap snapshotdomain.PreferenceRepository

	Source      domain.ChargedSubscriptionSource
	Addresses   domain.AddressSource
	Preferences domain.PreferenceSource
	Bridge      expeditiondomain.Bridge
	Resolver    domain.OrganisationResolver `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clk    clock.Clock
	cfg    config.Config
	tracer trace.Tracer

	batches  domain.Repository
	lines    domain.LineRepository
	pending  *pending.Store
	cutoffs  cutoffdomain.Repository
	addrSnap snapshotdomain.AddressRepository
	prefSnap snapshotdomain.PreferenceRepository

	source      domain.ChargedSubscriptionSource
	addresses   domain.AddressSource
	preferences domain.PreferenceSource
	bridge      expeditiondomain.Bridge
	resolver    domain.OrganisationResolver

	orgs *orgCache
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("batch.service"),
		genID:       p.GenID,
		clk:         p.Clock,
		cfg:         p.Config,
		tracer:      otel.Tracer("batch.service"),
		batches:     p.Batches,
		lines:       p.Lines,
		pending:     p.Pending,
		cutoffs:     p.Cutoffs,
		addrSnap:    p.AddrSnap,
		prefSnap:    p.PrefSnap,
		source:      p.Source,
		addresses:   p.Addresses,
		preferences: p.Preferences,
		bridge:      p.Bridge,
		resolver:    p.Resolver,
		orgs:        newOrgCache(orgResolutionTTL),
	}
}

func (s *Service) CreateBatch(ctx context.Context, orgID, legalEntityID string) (*domain.Batch, error) {
	now := s.clk.Now()
	batch := &domain.Batch{
		ID:             s.genID.Generate(),
		OrganisationID: strings.TrimSpace(orgID),
		LegalEntityID:  strings.TrimSpace(legalEntityID),
		Status:         domain.BatchStatusOpen,
		BatchDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.batches.Insert(ctx, s.db, batch); err != nil {
		return nil, err
	}
	s.log.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("legal_entity_id", batch.LegalEntityID),
	)
	return batch, nil
}

func (s *Service) GetOpenBatch(ctx context.Context, legalEntityID string) (*domain.Batch, error) {
	return s.getOrCreateOpen(ctx, legalEntityID, "")
}

// getOrCreateOpen returns the legal entity's OPEN batch, creating one under
// the partial unique index when none exists. orgHint short-circuits resolution
// when the caller already knows the owning organisation.
func (s *Service) getOrCreateOpen(ctx context.Context, legalEntityID, orgHint string) (*domain.Batch, error) {
	legalEntityID = strings.TrimSpace(legalEntityID)
	if batch, err := s.batches.FindOpenByLegalEntity(ctx, s.db, legalEntityID); err != nil || batch != nil {
		return batch, err
	}

	orgID := strings.TrimSpace(orgHint)
	if orgID == "" {
		resolved, err := s.resolveOrganisation(ctx, legalEntityID)
		if err != nil {
			return nil, err
		}
		orgID = resolved
	}

	batch, err := s.CreateBatch(ctx, orgID, legalEntityID)
	if err == nil {
		return batch, nil
	}
	// A concurrent caller may have created the open batch first; the partial
	// unique index rejects the second insert.
	if isUniqueViolation(err) {
		if existing, findErr := s.batches.FindOpenByLegalEntity(ctx, s.db, legalEntityID); findErr == nil && existing != nil {
			return existing, nil
		}
	}
	return nil, err
}

// resolveOrganisation walks the injected resolver, then cutoff configurations
// for the legal entity, then the configured default.
func (s *Service) resolveOrganisation(ctx context.Context, legalEntityID string) (string, error) {
	if orgID, ok := s.orgs.get(legalEntityID); ok {
		return orgID, nil
	}

	if s.resolver != nil {
		orgID, err := s.resolver.ResolveOrganisation(ctx, legalEntityID)
		if err != nil {
			return "", err
		}
		if orgID = strings.TrimSpace(orgID); orgID != "" {
			s.orgs.set(legalEntityID, orgID)
			return orgID, nil
		}
	}

	configs, err := s.cutoffs.ListByLegalEntity(ctx, s.db, legalEntityID)
	if err != nil {
		return "", err
	}
	for _, cfg := range configs {
		if orgID := strings.TrimSpace(cfg.OrganisationID); orgID != "" {
			s.orgs.set(legalEntityID, orgID)
			return orgID, nil
		}
	}

	if orgID := strings.TrimSpace(s.cfg.DefaultOrganisationID); orgID != "" {
		s.orgs.set(legalEntityID, orgID)
		return orgID, nil
	}

	return "", domain.ErrOrganisationNotResolved.With(map[string]any{
		"legal_entity_id": legalEntityID,
	})
}

func (s *Service) CompleteBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	ctx, span := s.tracer.Start(ctx, "CompleteBatch")
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
		ok, err := s.batches.ClaimTransition(ctx, tx, id, domain.BatchStatusDispatched, domain.BatchStatusCompleted, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition.With(map[string]any{
				"batch_id": batchID,
				"status":   batch.Status.String(),
				"expected": domain.BatchStatusDispatched.String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("batch completed", zap.String("batch_id", batchID))
	return s.batches.FindByID(ctx, s.db, id)
}

func (s *Service) parseBatchID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrBatchNotFound.With(map[string]any{"batch_id": raw})
	}
	return id, nil
}

// isUniqueViolation reports whether err looks like a duplicate-key rejection.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
