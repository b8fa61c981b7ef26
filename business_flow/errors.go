// Package businessflow contains the core business logic and use cases for the activation store
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Tenant-related errors
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrTenantInactive       = errors.New("tenant is not active")
	ErrTenantNameTaken      = errors.New("tenant name already exists")
	ErrIncorrectAPISecret   = errors.New("incorrect API secret")
	ErrInvalidTenantStatus  = errors.New("invalid tenant status transition")
	ErrTenantContextMissing = errors.New("no tenant bound to the request context")

	// Catalog errors
	ErrProfileNotFound        = errors.New("profile not found")
	ErrMarketingEventNotFound = errors.New("marketing event not found")
	ErrNoEmbeddableContent    = errors.New("marketing event has no embeddable content")
	ErrContentUpdateEmpty     = errors.New("at least one content field must be provided for update")

	// Ledger errors
	ErrDeliveryAttemptNotFound = errors.New("delivery attempt not found")
	ErrSupersededNotPending    = errors.New("superseded delivery attempt is not pending")
	ErrChannelNotConsented     = errors.New("profile has not consented to the channel")
	ErrNoContactPoint          = errors.New("profile has no contact point for the channel")
	ErrMalformedContactPoint   = errors.New("contact point is malformed for the channel")

	// Snapshot errors
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Decision errors
	ErrDecisionNotFound     = errors.New("decision record not found")
	ErrDecisionNotPending   = errors.New("decision record is not pending")
	ErrRetryCeilingExceeded = errors.New("decision retry ceiling exceeded")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 1000")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
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

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsTenantNameTaken(err error) bool {
	return errors.Is(err, ErrTenantNameTaken)
}

func IsIncorrectAPISecret(err error) bool {
	return errors.Is(err, ErrIncorrectAPISecret)
}

func IsInvalidTenantStatus(err error) bool {
	return errors.Is(err, ErrInvalidTenantStatus)
}

func IsTenantContextMissing(err error) bool {
	return errors.Is(err, ErrTenantContextMissing)
}

func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

func IsMarketingEventNotFound(err error) bool {
	return errors.Is(err, ErrMarketingEventNotFound)
}

func IsNoEmbeddableContent(err error) bool {
	return errors.Is(err, ErrNoEmbeddableContent)
}

func IsContentUpdateEmpty(err error) bool {
	return errors.Is(err, ErrContentUpdateEmpty)
}

func IsDeliveryAttemptNotFound(err error) bool {
	return errors.Is(err, ErrDeliveryAttemptNotFound)
}

func IsSupersededNotPending(err error) bool {
	return errors.Is(err, ErrSupersededNotPending)
}

func IsChannelNotConsented(err error) bool {
	return errors.Is(err, ErrChannelNotConsented)
}

func IsNoContactPoint(err error) bool {
	return errors.Is(err, ErrNoContactPoint)
}

func IsMalformedContactPoint(err error) bool {
	return errors.Is(err, ErrMalformedContactPoint)
}

func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}

func IsDecisionNotFound(err error) bool {
	return errors.Is(err, ErrDecisionNotFound)
}

func IsDecisionNotPending(err error) bool {
	return errors.Is(err, ErrDecisionNotPending)
}

func IsRetryCeilingExceeded(err error) bool {
	return errors.Is(err, ErrRetryCeilingExceeded)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
