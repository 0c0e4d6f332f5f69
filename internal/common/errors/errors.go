// Package errors provides standardized error handling for the push gateway.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration / credential errors. Fatal: nothing downstream can run
	// without a valid service account.
	ErrCodeCredentialMissing ErrorCode = "CREDENTIAL_MISSING"
	ErrCodeCredentialInvalid ErrorCode = "CREDENTIAL_INVALID"

	// Auth errors against the provider's OAuth2 token endpoint.
	ErrCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"

	// Request validation.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// External store access.
	ErrCodeStoreQueryFailed ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeFlagWriteFailed  ErrorCode = "FLAG_WRITE_FAILED"

	// Per-device delivery. Never fatal for the batch; surfaced in the
	// dispatch details, not as a StandardError, except when the whole
	// multicast cannot even start.
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewCredentialMissingError creates a non-retryable configuration error.
// Raised before any network call is attempted.
func NewCredentialMissingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCredentialMissing,
		Message:   "FCM service account credential is not configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCredentialInvalidError creates a non-retryable error for an unparseable
// private key or otherwise malformed credential.
func NewCredentialInvalidError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCredentialInvalid,
		Message:   "FCM service account credential is malformed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenExchangeFailedError wraps a rejection from the OAuth2 token
// endpoint. Details carries the verbatim provider response body so an
// operator can tell clock skew from a revoked key.
func NewTokenExchangeFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenExchangeFailed,
		Message:   "OAuth2 token exchange was rejected",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable request validation error.
// The missing field names are kept in Metadata for the HTTP response.
func NewValidationFailedError(missingFields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request is missing required fields",
		Details:   fmt.Sprintf("missing: %v", missingFields),
		Retryable: false,
		Metadata:  map[string]interface{}{"missing_fields": missingFields},
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryFailedError creates a retryable store read error.
func NewStoreQueryFailedError(what string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "External store query failed",
		Details:   fmt.Sprintf("%s: %s", what, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFlagWriteFailedError creates a retryable error for a reminder-flag
// claim. Affected rows stay unmarked and are picked up again while they
// remain inside the scan window.
func NewFlagWriteFailedError(what string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFlagWriteFailed,
		Message:   "Failed to persist reminder_sent flag",
		Details:   fmt.Sprintf("%s: %s", what, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError creates an error for a multicast that could not be
// attempted at all (as opposed to per-device failures, which live in the
// dispatch details).
func NewDeliveryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
