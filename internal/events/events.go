// Package events defines the asynchronous notifications the orchestrator
// consumes.
package events

import (
	"encoding/json"

	"github.com/HDZ65/crm-final-sub010/internal/batch/domain"
)

// TopicSubscriptionCharged announces that a recurring subscription was billed
// and now owes a shipment. Delivery is at-least-once and unordered across
// subscriptions.
const TopicSubscriptionCharged = "subscription.charged"

// SubscriptionChargedPayload is the wire shape of the charge notification.
// Only the subscription id is mandatory; the orchestrator resolves the rest
// against the billing source.
type SubscriptionChargedPayload struct {
	SubscriptionID string  `json:"subscription_id"`
	OrganisationID string  `json:"organisation_id,omitempty"`
	LegalEntityID  string  `json:"legal_entity_id,omitempty"`
	ClientID       string  `json:"client_id,omitempty"`
	ProductID      string  `json:"produit_id,omitempty"`
	Quantity       int     `json:"quantite,omitempty"`
	Transporteur   string  `json:"transporteur_account_id,omitempty"`
	ContractID     string  `json:"contract_id,omitempty"`
	ProductName    string  `json:"product_name,omitempty"`
	WeightKg       float64 `json:"weight_kg,omitempty"`
	OrderReference string  `json:"order_reference,omitempty"`
}

// DecodeSubscriptionCharged parses a raw message body.
func DecodeSubscriptionCharged(body []byte) (SubscriptionChargedPayload, error) {
	var payload SubscriptionChargedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return SubscriptionChargedPayload{}, err
	}
	return payload, nil
}

// ToEvent converts the wire payload into the domain event.
func (p SubscriptionChargedPayload) ToEvent() domain.SubscriptionChargedEvent {
	return domain.SubscriptionChargedEvent{
		SubscriptionID:        p.SubscriptionID,
		OrganisationID:        p.OrganisationID,
		LegalEntityID:         p.LegalEntityID,
		ClientID:              p.ClientID,
		ProductID:             p.ProductID,
		Quantity:              p.Quantity,
		TransporteurAccountID: p.Transporteur,
		ContractID:            p.ContractID,
		ProductName:           p.ProductName,
		WeightKg:              p.WeightKg,
		OrderReference:        p.OrderReference,
	}
}
