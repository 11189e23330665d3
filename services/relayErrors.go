package services

import (
	"errors"
	"fmt"

	"github.com/PushRelay/ratelimit"
)

var (
	ErrInvalidAppID         = errors.New("app id does not match this deployment")
	ErrMissingEncryptedData = errors.New("encrypted_data is required when encrypted is true")
	ErrPayloadTooLarge      = errors.New("payload exceeds the push size limit")
	ErrDeliveryCancelled    = errors.New("delivery cancelled before the gateway answered")
)

// UpstreamError is a push the gateway did not accept. The failure has already
// been counted against the token.
type UpstreamError struct {
	Gateway string
	Record  ratelimit.Record
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Gateway, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StorageError means the rate limit store could not be read or written.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("rate limit storage unavailable: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
