package domain

import "errors"

var (
	// ErrMalformedInput is returned when the request body is not valid JSON.
	ErrMalformedInput = errors.New("invalid JSON")
	// ErrNoTrackedAttributes is returned when no tracked attribute was found in the payload.
	ErrNoTrackedAttributes = errors.New("no tracked attributes in payload")
	ErrMissingPhone        = errors.New("phone attribute missing")
	ErrInvalidPhoneFormat  = errors.New("invalid phone number format")
	// ErrSendFailed wraps a provider failure or a log write that followed a send.
	ErrSendFailed = errors.New("failed to send message")
	// ErrStoreUnavailable wraps sent-log read and lock failures.
	ErrStoreUnavailable = errors.New("sent log unavailable")
)
