// Package expedition translates locked batch lines into shipment requests.
package expedition

import (
	"fmt"
	"strings"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/expedition/domain"
)

// BuildInput carries everything needed to assemble a shipment request: the
// frozen destination, the dispatch metadata captured on the line at lock time,
// and the configured fallback carrier account.
type BuildInput struct {
	BatchID string
	LineID  string

	Street     string
	PostalCode string
	City       string
	Country    string

	TransporteurAccountID string
	ContractID            string
	OrderReference        string
	ProductID             string
	ProductName           string
	WeightKg              float64
	Quantity              int

	DefaultTransporteurAccountID string
	DispatchedAt                 time.Time
}

// BuildCreateRequest assembles the bridge request. The order reference
// defaults to "{batchID}-{lineID}" when the candidate carried none; the
// carrier account is mandatory after applying the configured default.
func BuildCreateRequest(in BuildInput) (domain.CreateExpeditionRequest, error) {
	account := strings.TrimSpace(in.TransporteurAccountID)
	if account == "" {
		account = strings.TrimSpace(in.DefaultTransporteurAccountID)
	}
	if account == "" {
		return domain.CreateExpeditionRequest{}, domain.ErrTransporteurAccountRequired.With(map[string]any{
			"batch_id": in.BatchID,
			"line_id":  in.LineID,
		})
	}

	reference := strings.TrimSpace(in.OrderReference)
	if reference == "" {
		reference = fmt.Sprintf("%s-%s", in.BatchID, in.LineID)
	}

	return domain.CreateExpeditionRequest{
		AddressLine1:          in.Street,
		PostalCode:            in.PostalCode,
		City:                  in.City,
		Country:               in.Country,
		TransporteurAccountID: account,
		ContractID:            strings.TrimSpace(in.ContractID),
		OrderReference:        reference,
		ProductID:             in.ProductID,
		ProductName:           in.ProductName,
		WeightKg:              in.WeightKg,
		Quantity:              in.Quantity,
		ExpeditedAt:           in.DispatchedAt,
	}, nil
}
