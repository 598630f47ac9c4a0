// Package repository implements cutoff configuration lookups on gorm.
package repository

import (
	"context"

	"github.com/HDZ65/crm-final-sub010/internal/cutoff/domain"
	"gorm.io/gorm"
)

type repository struct{}

// Provide builds the cutoff configuration repository.
func Provide() domain.Repository {
	return repository{}
}

func (repository) ListActiveByOrganisation(ctx context.Context, db *gorm.DB, orgID string) ([]domain.Configuration, error) {
	var configs []domain.Configuration
	err := db.WithContext(ctx).
		Where("organisation_id = ? AND active = ?", orgID, true).
		Order("legal_entity_id, day_of_week").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (repository) ListByLegalEntity(ctx context.Context, db *gorm.DB, legalEntityID string) ([]domain.Configuration, error) {
	var configs []domain.Configuration
	err := db.WithContext(ctx).
		Where("legal_entity_id = ?", legalEntityID).
		Order("active DESC, updated_at DESC").
		Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (repository) ListOrganisationsWithActive(ctx context.Context, db *gorm.DB) ([]string, error) {
	var orgIDs []string
	err := db.WithContext(ctx).
		Model(&domain.Configuration{}).
		Distinct("organisation_id").
		Where("active = ?", true).
		Order("organisation_id").
		Pluck("organisation_id", &orgIDs).Error
	if err != nil {
		return nil, err
	}
	return orgIDs, nil
}
