// Package pending stores push-channel shipment candidates until batch lock.
//
// Candidates land here when a "subscription charged" event arrives and are
// claimed, atomically, when the owning batch locks. Keeping them in a table
// rather than process memory means they survive restarts and stay consistent
// across concurrent instances.
package pending

import (
	"context"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Candidate is one queued shipment candidate, keyed by (batch, subscription).
// Redelivery of the same event overwrites the row instead of duplicating it.
type Candidate struct {
	BatchID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	SubscriptionID string       `gorm:"primaryKey;type:text"`
	OrganisationID string       `gorm:"type:text;not null"`
	ClientID       string       `gorm:"type:text;not null"`
	ProductID      string       `gorm:"type:text;not null"`
	Quantity       int          `gorm:"not null"`

	TransporteurAccountID string  `gorm:"type:text"`
	ContractID            string  `gorm:"type:text"`
	ProductName           string  `gorm:"type:text"`
	WeightKg              float64 `gorm:""`
	OrderReference        string  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Candidate) TableName() string { return "pending_candidates" }

// Store queues candidates per batch.
type Store struct{}

// NewStore builds the pending candidate store.
func NewStore() *Store {
	return &Store{}
}

// Enqueue inserts or overwrites the candidate for its subscription id.
func (s *Store) Enqueue(ctx context.Context, db *gorm.DB, batchID snowflake.ID, orgID string, candidate domain.ShipmentCandidate) error {
	now := time.Now().UTC()
	row := Candidate{
		BatchID:               batchID,
		SubscriptionID:        candidate.SubscriptionID,
		OrganisationID:        orgID,
		ClientID:              candidate.ClientID,
		ProductID:             candidate.ProductID,
		Quantity:              candidate.Quantity,
		TransporteurAccountID: candidate.TransporteurAccountID,
		ContractID:            candidate.ContractID,
		ProductName:           candidate.ProductName,
		WeightKg:              candidate.WeightKg,
		OrderReference:        candidate.OrderReference,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "batch_id"}, {Name: "subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"organisation_id", "client_id", "product_id", "quantity",
			"transporteur_account_id", "contract_id", "product_name",
			"weight_kg", "order_reference", "updated_at",
		}),
	}).Create(&row).Error
}

// CountForBatch returns the queued candidate count, used as the open batch's
// advisory line count.
func (s *Store) CountForBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) (int, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&Candidate{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Claim reads and deletes every candidate queued for the batch. Callers run it
// inside the lock transaction so the drain is atomic with the status claim: a
// candidate is either returned here exactly once or left for the legal
// entity's next open batch. The delete targets only the subscription ids the
// select returned; a row committed between the two statements stays queued.
func (s *Store) Claim(ctx context.Context, tx *gorm.DB, batchID snowflake.ID) ([]domain.ShipmentCandidate, error) {
	var rows []Candidate
	if err := tx.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("subscription_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	claimed := make([]string, 0, len(rows))
	for _, row := range rows {
		claimed = append(claimed, row.SubscriptionID)
	}
	if err := tx.WithContext(ctx).
		Where("batch_id = ? AND subscription_id IN ?", batchID, claimed).
		Delete(&Candidate{}).Error; err != nil {
		return nil, err
	}

	candidates := make([]domain.ShipmentCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, domain.ShipmentCandidate{
			SubscriptionID:        row.SubscriptionID,
			ClientID:              row.ClientID,
			ProductID:             row.ProductID,
			Quantity:              row.Quantity,
			TransporteurAccountID: row.TransporteurAccountID,
			ContractID:            row.ContractID,
			ProductName:           row.ProductName,
			WeightKg:              row.WeightKg,
			OrderReference:        row.OrderReference,
		})
	}
	return candidates, nil
}
