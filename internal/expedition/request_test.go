package expedition

import (
	"errors"
	"testing"
	"time"

	"github.com/HDZ65/crm-final-sub010/internal/expedition/domain"
)

func baseInput() BuildInput {
	return BuildInput{
		BatchID:               "101",
		LineID:                "202",
		Street:                "12 rue des Lilas",
		PostalCode:            "75011",
		City:                  "Paris",
		Country:               "FR",
		TransporteurAccountID: "acct-1",
		ProductID:             "prod-1",
		Quantity:              2,
		DispatchedAt:          time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestBuildCreateRequestDefaultsOrderReference(t *testing.T) {
	req, err := BuildCreateRequest(baseInput())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.OrderReference != "101-202" {
		t.Fatalf("expected default reference 101-202, got %q", req.OrderReference)
	}
}

func TestBuildCreateRequestKeepsCarriedReference(t *testing.T) {
	in := baseInput()
	in.OrderReference = "order-77"

	req, err := BuildCreateRequest(in)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.OrderReference != "order-77" {
		t.Fatalf("expected carried reference, got %q", req.OrderReference)
	}
}

func TestBuildCreateRequestFallsBackToDefaultAccount(t *testing.T) {
	in := baseInput()
	in.TransporteurAccountID = ""
	in.DefaultTransporteurAccountID = "acct-default"

	req, err := BuildCreateRequest(in)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.TransporteurAccountID != "acct-default" {
		t.Fatalf("expected default account, got %q", req.TransporteurAccountID)
	}
}

func TestBuildCreateRequestRequiresAccount(t *testing.T) {
	in := baseInput()
	in.TransporteurAccountID = "  "
	in.DefaultTransporteurAccountID = ""

	_, err := BuildCreateRequest(in)
	if !errors.Is(err, domain.ErrTransporteurAccountRequired) {
		t.Fatalf("expected TRANSPORTEUR_ACCOUNT_REQUIRED, got %v", err)
	}
}

func TestBuildCreateRequestCopiesDestination(t *testing.T) {
	req, err := BuildCreateRequest(baseInput())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.AddressLine1 != "12 rue des Lilas" || req.PostalCode != "75011" || req.City != "Paris" || req.Country != "FR" {
		t.Fatalf("destination not copied: %+v", req)
	}
	if !req.ExpeditedAt.Equal(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expedited_at not stamped: %v", req.ExpeditedAt)
	}
}
