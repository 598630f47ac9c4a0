package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AddressRepository persists address snapshots. Snapshots are immutable, so
// there is deliberately no update operation.
type AddressRepository interface {
	Insert(ctx context.Context, db *gorm.DB, snap *AddressSnapshot) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AddressSnapshot, error)
}

// PreferenceRepository persists preference snapshots.
type PreferenceRepository interface {
	Insert(ctx context.Context, db *gorm.DB, snap *PreferenceSnapshot) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PreferenceSnapshot, error)
}
