package billing

import "errors"

var (
	ErrProvider         = errors.New("billing.provider_error")
	ErrSignatureInvalid = errors.New("billing.webhook_signature_invalid")
	ErrCustomerNotFound = errors.New("billing.customer_not_found")
	ErrInvalidEvent     = errors.New("billing.invalid_event")
	ErrPersistence      = errors.New("billing.persistence_failed")
	ErrMissingConfig    = errors.New("billing.missing_config")
)
