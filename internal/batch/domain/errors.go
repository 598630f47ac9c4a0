package domain

import "github.com/HDZ65/crm-final-sub010/internal/faults"

var (
	ErrBatchNotFound           = faults.New("BATCH_NOT_FOUND", "batch not found")
	ErrInvalidTransition       = faults.New("INVALID_TRANSITION", "batch status does not allow this transition")
	ErrOrganisationNotResolved = faults.New("ORGANISATION_NOT_RESOLVED", "no organisation could be resolved for the legal entity")
	ErrChargedPayloadInvalid   = faults.New("SUBSCRIPTION_CHARGED_PAYLOAD_INVALID", "subscription charged payload is missing required fields")
	ErrAddressSnapshotNotFound = faults.New("ADDRESS_SNAPSHOT_NOT_FOUND", "address snapshot referenced by the line does not exist")
	ErrClientAddressNotFound   = faults.New("CLIENT_ADDRESS_NOT_FOUND", "client has no shipping address")
)
