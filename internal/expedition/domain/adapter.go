// Package domain defines the carrier-side expedition bridge contract.
package domain

import (
	"context"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/faults"
)

// CreateExpeditionRequest is the fully-specified shipment handed to the bridge.
type CreateExpeditionRequest struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Country      string `json:"country"`

	TransporteurAccountID string `json:"transporteur_account_id"`
	ContractID            string `json:"contract_id,omitempty"`
	OrderReference        string `json:"order_reference"`

	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	WeightKg    float64 `json:"weight_kg,omitempty"`
	Quantity    int     `json:"quantity"`

	ExpeditedAt time.Time `json:"expedited_at"`
}

// Expedition is the carrier-side record returned by the bridge.
type Expedition struct {
	ID string `json:"id"`
}

// Bridge creates carrier shipments from fully-specified requests.
type Bridge interface {
	CreateExpedition(ctx context.Context, req CreateExpeditionRequest) (*Expedition, error)
}

// ErrTransporteurAccountRequired is raised when neither the candidate nor the
// configured default supplies a carrier account.
var ErrTransporteurAccountRequired = faults.New("TRANSPORTEUR_ACCOUNT_REQUIRED", "a transporteur account id is required to create an expedition")
