// Package domain contains the fulfillment batch entities and state machine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BatchStatus is the lifecycle state of a fulfillment batch. Statuses only
// advance forward through the four states, never backward, never skipping.
type BatchStatus string

const (
	BatchStatusOpen       BatchStatus = "OPEN"
	BatchStatusLocked     BatchStatus = "LOCKED"
	BatchStatusDispatched BatchStatus = "DISPATCHED"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
)

func (s BatchStatus) String() string { return string(s) }

// LineStatus is the dispatch state of a single batch line.
type LineStatus string

const (
	LineStatusToPrepare LineStatus = "TO_PREPARE"
	LineStatusShipped   LineStatus = "SHIPPED"
	LineStatusError     LineStatus = "ERROR"
)

func (s LineStatus) String() string { return string(s) }

// Batch groups the fulfillment obligations of one legal entity for one open
// period. At most one OPEN batch exists per legal entity at any time.
type Batch struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrganisationID string       `gorm:"type:text;not null;index"`
	LegalEntityID  string       `gorm:"type:text;not null;index"`
	Status         BatchStatus  `gorm:"type:text;not null;default:OPEN"`
	BatchDate      time.Time    `gorm:"not null"`

	// LineCount is authoritative once the batch is locked. While the batch is
	// open it is an advisory hint mirroring the pending-candidate set.
	LineCount int `gorm:"not null;default:0"`

	LockedAt     *time.Time `gorm:""`
	DispatchedAt *time.Time `gorm:""`
	CompletedAt  *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Batch) TableName() string { return "fulfillment_batches" }

// BatchLine is one shipment obligation captured at lock time. Everything but
// the status/expedition/error fields is immutable after creation; the dispatch
// metadata columns carry what the expedition request will need.
type BatchLine struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrganisationID string       `gorm:"type:text;not null;index"`
	BatchID        snowflake.ID `gorm:"not null;index"`
	SubscriptionID string       `gorm:"type:text;not null"`
	ClientID       string       `gorm:"type:text;not null"`
	ProductID      string       `gorm:"type:text;not null"`
	Quantity       int          `gorm:"not null"`

	AddressSnapshotID    snowflake.ID `gorm:"not null"`
	PreferenceSnapshotID snowflake.ID `gorm:"not null"`

	Status       LineStatus `gorm:"type:text;not null;default:TO_PREPARE"`
	ExpeditionID string     `gorm:"type:text"`
	ErrorMessage string     `gorm:"type:text"`

	// Dispatch metadata recorded at lock time.
	TransporteurAccountID string  `gorm:"type:text"`
	ContractID            string  `gorm:"type:text"`
	ProductName           string  `gorm:"type:text"`
	WeightKg              float64 `gorm:""`
	OrderReference        string  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BatchLine) TableName() string { return "fulfillment_batch_lines" }
