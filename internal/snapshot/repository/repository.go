// Package repository implements the snapshot stores on gorm.
package repository

import (
	"context"
	"errors"

	"github.com/HDZ65/crm-final-sub010/internal/snapshot/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type addressRepository struct{}

// ProvideAddress builds the address snapshot repository.
func ProvideAddress() domain.AddressRepository {
	return addressRepository{}
}

func (addressRepository) Insert(ctx context.Context, db *gorm.DB, snap *domain.AddressSnapshot) error {
	return db.WithContext(ctx).Create(snap).Error
}

func (addressRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AddressSnapshot, error) {
	var snap domain.AddressSnapshot
	err := db.WithContext(ctx).First(&snap, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

type preferenceRepository struct{}

// ProvidePreference builds the preference snapshot repository.
func ProvidePreference() domain.PreferenceRepository {
	return preferenceRepository{}
}

func (preferenceRepository) Insert(ctx context.Context, db *gorm.DB, snap *domain.PreferenceSnapshot) error {
	return db.WithContext(ctx).Create(snap).Error
}

func (preferenceRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PreferenceSnapshot, error) {
	var snap domain.PreferenceSnapshot
	err := db.WithContext(ctx).First(&snap, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
