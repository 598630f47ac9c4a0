// Package domain contains the weekly cutoff schedule configuration.
package domain

import (
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/faults"
	"github.com/bwmarrin/snowflake"
)

// Configuration describes when a legal entity's open batch auto-locks.
// Configurations are owned by configuration management; this core only reads
// them. Several rows may exist per legal entity (historical ones kept
// inactive); only active rows participate in the cutoff job.
type Configuration struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrganisationID string       `gorm:"type:text;not null;index"`
	LegalEntityID  string       `gorm:"type:text;not null;index"`

	// DayOfWeek uses 0=Monday .. 6=Sunday.
	DayOfWeek  int    `gorm:"not null"`
	CutoffTime string `gorm:"type:text;not null"`
	Timezone   string `gorm:"type:text;not null"`

	// No default tag: gorm would omit a zero-value false on insert and the
	// column default would silently activate the row.
	Active bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Configuration) TableName() string { return "cutoff_configurations" }

var (
	ErrCutoffTimeInvalid       = faults.New("CUTOFF_TIME_INVALID", "cutoff time must match HH:MM")
	ErrTimezoneEvalFailed      = faults.New("CUTOFF_TIMEZONE_EVAL_FAILED", "cutoff timezone evaluation failed")
	ErrTimezoneParseFailed     = faults.New("CUTOFF_TIMEZONE_PARSE_FAILED", "cutoff clock token could not be parsed")
	ErrWeekdayTokenUnsupported = faults.New("WEEKDAY_TOKEN_UNSUPPORTED", "weekday token is not supported")
)
