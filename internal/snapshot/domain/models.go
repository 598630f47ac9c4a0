// Package domain contains the write-once shipping snapshots captured at lock time.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Address is the shipping destination resolved from the client directory.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// AddressSnapshot freezes a client's shipping address at batch lock time.
// Rows are inserted once and never updated; lines reference them by id so the
// dispatched shipment reflects the world at order-freeze time even if the
// client moves house before dispatch.
type AddressSnapshot struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrganisationID string       `gorm:"type:text;not null;index"`
	ClientID       string       `gorm:"type:text;not null"`
	Street         string       `gorm:"type:text;not null"`
	PostalCode     string       `gorm:"type:text;not null"`
	City           string       `gorm:"type:text;not null"`
	Country        string       `gorm:"type:text;not null"`
	CapturedAt     time.Time    `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AddressSnapshot) TableName() string { return "address_snapshots" }

// Address rebuilds the destination value from the frozen columns.
func (s AddressSnapshot) Address() Address {
	return Address{
		Street:     s.Street,
		PostalCode: s.PostalCode,
		City:       s.City,
		Country:    s.Country,
	}
}

// PreferenceSnapshot freezes a subscription's fulfillment preferences at batch
// lock time. The payload is schemaless key/value data (product customization
// and similar), stored as jsonb.
type PreferenceSnapshot struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	OrganisationID string            `gorm:"type:text;not null;index"`
	SubscriptionID string            `gorm:"type:text;not null"`
	Preferences    datatypes.JSONMap `gorm:"type:jsonb"`
	CapturedAt     time.Time         `gorm:"not null"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PreferenceSnapshot) TableName() string { return "preference_snapshots" }
