package domain

import (
	"context"
	"time"

	snapshotdomain "github.com/HDZ65/crm-final-sub010/internal/snapshot/domain"
)

// SubscriptionDetails is the pull-side record for one subscription, including
// the identifiers a sparse event payload may be missing.
type SubscriptionDetails struct {
	OrganisationID string
	LegalEntityID  string
	ShipmentCandidate
}

// ChargedSubscriptionSource lists the subscriptions that have been charged and
// are due for fulfillment, with their shipping metadata.
type ChargedSubscriptionSource interface {
	ListDue(ctx context.Context, orgID, legalEntityID string, batchDate time.Time) ([]ShipmentCandidate, error)

	// FindBySubscriptionID resolves a single subscription, used to fill sparse
	// event payloads. Returns nil when unknown.
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*SubscriptionDetails, error)
}

// AddressSource resolves a client's current shipping address from the client
// directory.
type AddressSource interface {
	GetClientAddress(ctx context.Context, orgID, clientID string) (*snapshotdomain.Address, error)
}

// PreferenceSource resolves a subscription's current fulfillment preferences.
type PreferenceSource interface {
	GetSubscriptionPreferences(ctx context.Context, orgID, subscriptionID string) (map[string]any, error)
}

// OrganisationResolver maps a legal entity onto its owning organisation.
// Implementations may return an empty string to decline, letting the service
// fall back to cutoff configurations and then the configured default.
type OrganisationResolver interface {
	ResolveOrganisation(ctx context.Context, legalEntityID string) (string, error)
}
