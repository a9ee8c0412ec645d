// Package businessflow contains the core business logic and use cases for the drift bottle service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Bottle-related errors
	ErrNoBottlesAvailable = errors.New("no bottles available")
	ErrClaimContention    = errors.New("claim contention, every sampled bottle was taken concurrently")

	// Request validation errors
	ErrContentRequired  = errors.New("content is required")
	ErrSenderRequired   = errors.New("sender is required")
	ErrSenderIDRequired = errors.New("sender_id is required")
	ErrPokeRequired     = errors.New("poke is required")
	ErrInvalidImage     = errors.New("image type and data are required")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsNoBottlesAvailable(err error) bool {
	return errors.Is(err, ErrNoBottlesAvailable)
}

func IsClaimContention(err error) bool {
	return errors.Is(err, ErrClaimContention)
}

func IsContentRequired(err error) bool {
	return errors.Is(err, ErrContentRequired)
}

func IsSenderRequired(err error) bool {
	return errors.Is(err, ErrSenderRequired)
}

func IsSenderIDRequired(err error) bool {
	return errors.Is(err, ErrSenderIDRequired)
}

func IsPokeRequired(err error) bool {
	return errors.Is(err, ErrPokeRequired)
}

func IsInvalidImage(err error) bool {
	return errors.Is(err, ErrInvalidImage)
}
