package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository reads cutoff configurations. Writes happen in configuration
// management, outside this core.
type Repository interface {
	ListActiveByOrganisation(ctx context.Context, db *gorm.DB, orgID string) ([]Configuration, error)
	ListByLegalEntity(ctx context.Context, db *gorm.DB, legalEntityID string) ([]Configuration, error)
	ListOrganisationsWithActive(ctx context.Context, db *gorm.DB) ([]string, error)
}
