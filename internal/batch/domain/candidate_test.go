package domain

import "testing"

func TestMergeCandidatesPendingWins(t *testing.T) {
	due := []ShipmentCandidate{
		{SubscriptionID: "sub-1", ClientID: "client-1", ProductID: "prod-1", Quantity: 1},
		{SubscriptionID: "sub-2", ClientID: "client-2", ProductID: "prod-2", Quantity: 3},
	}
	pending := []ShipmentCandidate{
		{SubscriptionID: "sub-1", ClientID: "client-1", ProductID: "prod-1", Quantity: 5},
	}

	merged := MergeCandidates(due, pending)
	if len(merged) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(merged))
	}
	byID := map[string]ShipmentCandidate{}
	for _, c := range merged {
		byID[c.SubscriptionID] = c
	}
	if byID["sub-1"].Quantity != 5 {
		t.Fatalf("expected pending quantity 5 to win, got %d", byID["sub-1"].Quantity)
	}
	if byID["sub-2"].Quantity != 3 {
		t.Fatalf("expected due-only candidate untouched, got %d", byID["sub-2"].Quantity)
	}
}

func TestMergeCandidatesIncludesPendingOnly(t *testing.T) {
	pending := []ShipmentCandidate{
		{SubscriptionID: "sub-9", ClientID: "client-9", ProductID: "prod-9", Quantity: 1},
	}

	merged := MergeCandidates(nil, pending)
	if len(merged) != 1 || merged[0].SubscriptionID != "sub-9" {
		t.Fatalf("expected the pending-only candidate, got %+v", merged)
	}
}

func TestMergeCandidatesDoesNotMutateInputs(t *testing.T) {
	due := []ShipmentCandidate{{SubscriptionID: "sub-1", Quantity: 1}}
	pending := []ShipmentCandidate{{SubscriptionID: "sub-1", Quantity: 2}}

	MergeCandidates(due, pending)
	if due[0].Quantity != 1 || pending[0].Quantity != 2 {
		t.Fatal("merge mutated its inputs")
	}
}
