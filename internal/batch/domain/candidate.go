package domain

// ShipmentCandidate is a subscription-derived record describing a pending
// shipment before it becomes a persisted line. It carries the shipping
// metadata needed to build the line and, later, the expedition request.
type ShipmentCandidate struct {
	SubscriptionID string
	ClientID       string
	ProductID      string
	Quantity       int

	TransporteurAccountID string
	ContractID            string
	ProductName           string
	WeightKg              float64
	OrderReference        string
}

// MergeCandidates reconciles the pull-based due list with the push-based
// pending set, keyed by subscription id. Due candidates are written first and
// pending ones overwrite them: the push channel has seen the subscription more
// recently, so its shape wins, and a subscription charged after the last pull
// is still included.
func MergeCandidates(due, pending []ShipmentCandidate) []ShipmentCandidate {
	merged := make(map[string]ShipmentCandidate, len(due)+len(pending))
	order := make([]string, 0, len(due)+len(pending))

	for _, candidate := range due {
		if _, seen := merged[candidate.SubscriptionID]; !seen {
			order = append(order, candidate.SubscriptionID)
		}
		merged[candidate.SubscriptionID] = candidate
	}
	for _, candidate := range pending {
		if _, seen := merged[candidate.SubscriptionID]; !seen {
			order = append(order, candidate.SubscriptionID)
		}
		merged[candidate.SubscriptionID] = candidate
	}

	result := make([]ShipmentCandidate, 0, len(order))
	for _, id := range order {
		result = append(result, merged[id])
	}
	return result
}
