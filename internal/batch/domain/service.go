package domain

import (
	"context"
	"time"
)

// SubscriptionChargedEvent is the push notification that a subscription was
// billed. Only the subscription id is mandatory; missing fields are resolved
// against the billing source before the candidate is enqueued.
type SubscriptionChargedEvent struct {
	SubscriptionID string
	OrganisationID string
	LegalEntityID  string
	ClientID       string
	ProductID      string
	Quantity       int

	TransporteurAccountID string
	ContractID            string
	ProductName           string
	WeightKg              float64
	OrderReference        string
}

// Service drives batches through OPEN -> LOCKED -> DISPATCHED -> COMPLETED.
type Service interface {
	CreateBatch(ctx context.Context, orgID, legalEntityID string) (*Batch, error)

	// GetOpenBatch returns the legal entity's OPEN batch, creating one when
	// none exists. The owning organisation is resolved via the injected
	// resolver, then cutoff configurations, then the configured default.
	GetOpenBatch(ctx context.Context, legalEntityID string) (*Batch, error)

	LockBatch(ctx context.Context, batchID string) (*Batch, error)
	DispatchBatch(ctx context.Context, batchID string) (*Batch, error)
	CompleteBatch(ctx context.Context, batchID string) (*Batch, error)

	// RedispatchFailedLines retries every ERROR line of a DISPATCHED batch and
	// returns how many shipped. Lines that fail again stay ERROR with the new
	// failure recorded.
	RedispatchFailedLines(ctx context.Context, batchID string) (int, error)

	HandleSubscriptionCharged(ctx context.Context, event SubscriptionChargedEvent) error

	// RunCutoffJob locks every OPEN batch of the organisation whose active
	// cutoff configuration has been reached at referenceTime. Legal entities
	// without an OPEN batch are skipped silently.
	RunCutoffJob(ctx context.Context, orgID string, referenceTime time.Time) ([]Batch, error)
}
