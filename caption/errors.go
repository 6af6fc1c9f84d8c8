package caption

import (
	"errors"
	"fmt"
)

var (
	// ErrAllCredentialsExhausted means every API key is quarantined or failed in this call; retry later
	ErrAllCredentialsExhausted = errors.New("all caption service credentials exhausted, retry later")
	// ErrEmptyResponse is returned when the model answered with no text
	ErrEmptyResponse = errors.New("caption service returned an empty response")
	// ErrNoCredentials is returned when the client is built without keys
	ErrNoCredentials = errors.New("no caption service credentials configured")
)

// ServiceError is any non-quota failure of the caption provider
type ServiceError struct {
	Status  int    // HTTP status, 0 if the request never got a response
	Message string // provider message
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("caption service error (status %d): %s", e.Status, e.Message)
	}
	return "caption service error: " + e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// QuotaError is returned by providers when a key is rate-limited, over quota or rejected
type QuotaError struct {
	Status  int
	Message string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("caption credential rejected (status %d): %s", e.Status, e.Message)
}

// IsQuotaError tells whether the key used should be quarantined
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
