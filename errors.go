package fundraise

import (
	"errors"
	"fmt"

	"github.com/xraph/fundraise/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("fundraise: not found")
	ErrInvalidInput = errors.New("fundraise: invalid input")
	ErrUnauthorized = errors.New("fundraise: caller has no investor profile")

	// Lookup errors
	ErrProjectNotFound      = errors.New("fundraise: project not found")
	ErrSubscriptionNotFound = errors.New("fundraise: subscription not found")
	ErrInvestorNotFound     = errors.New("fundraise: investor not found")
	ErrStartupNotFound      = errors.New("fundraise: startup not found")

	// Validation errors
	ErrMissingField       = errors.New("fundraise: this field is required")
	ErrInvalidAmount      = errors.New("fundraise: amount must be at least 0.01")
	ErrMalformedAmount    = types.ErrMalformedAmount
	ErrSelfInvestment     = errors.New("fundraise: you cannot invest in your own company's project")
	ErrImmutableField     = errors.New("fundraise: investor and project cannot be changed")
	ErrSubscriptionExists = errors.New("fundraise: a subscription to this project already exists; update it instead")
	ErrInvalidGoal        = errors.New("fundraise: funding goal must be at least 0.01")
	ErrProjectExists      = errors.New("fundraise: project already exists")

	// Capacity errors
	ErrProjectFullyFunded = errors.New("fundraise: project is already fully funded")
	ErrCapacityExceeded   = errors.New("fundraise: amount exceeds remaining capacity")

	// Store errors
	ErrIntegrity         = errors.New("fundraise: integrity constraint violated")
	ErrTransactionFailed = errors.New("fundraise: transaction failed, please retry")
	ErrStoreClosed       = errors.New("fundraise: store is closed")
)

// ValidationError is a caller-fixable failure scoped to one input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fundraise: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// newValidationError builds a ValidationError whose message is the
// sentinel's text without the package prefix.
func newValidationError(field string, sentinel error) *ValidationError {
	return &ValidationError{Field: field, Message: userMessage(sentinel), Err: sentinel}
}

// CapacityError rejects an amount that would push a project past its goal.
// Remaining is the exact allowance left for the caller at rejection time.
type CapacityError struct {
	Remaining types.Money
	Err       error
}

func (e *CapacityError) Error() string {
	if errors.Is(e.Err, ErrProjectFullyFunded) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s; the maximum you can invest is %s", e.Err.Error(), e.Remaining.FormatMajor())
}

func (e *CapacityError) Unwrap() error { return e.Err }

// Message returns the caller-facing text without the package prefix.
func (e *CapacityError) Message() string {
	if errors.Is(e.Err, ErrProjectFullyFunded) {
		return userMessage(e.Err)
	}
	return fmt.Sprintf("%s; the maximum you can invest is %s", userMessage(e.Err), e.Remaining.FormatMajor())
}

func userMessage(err error) string {
	const prefix = "fundraise: "
	msg := err.Error()
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrInvestorNotFound) ||
		errors.Is(err, ErrStartupNotFound)
}

// IsValidation returns true if the error is a caller-fixable input error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCapacity returns true if the error rejects an amount for lack of capacity.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsAuthorization returns true if the caller could not be resolved to an investor.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
