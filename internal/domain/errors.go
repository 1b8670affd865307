package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"        // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized"   // Authentication required
	EFORBIDDEN    = "forbidden"      // Permission denied
	ENOTFOUND     = "not_found"      // Resource not found
	ECONFLICT     = "conflict"       // Resource conflict (e.g., duplicate)
	EQUOTA        = "quota_exceeded" // Capacity ceiling reached for a scope
	ETOOLARGE     = "too_large"      // File exceeds its type's size limit
	EFROZEN       = "frozen"         // Vault is past the point of mutation
	EEMPTY        = "empty_vault"    // Vault has no content to deliver
	EPAYMENT      = "payment"        // Active subscription required
	ETRANSIENT    = "transient"      // Transient network failure, retryable
	EINTERNAL     = "internal"       // Internal server error
	ENOTIMPL      = "not_impl"       // Not implemented
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "content.admit")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		// For internal errors, return generic message
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// =============================================================================
// Structured Detail Types
// =============================================================================

// QuotaScope identifies the capacity scope a ceiling is enforced over.
type QuotaScope string

const (
	ScopeRecipients QuotaScope = "recipients"
	ScopePhotos     QuotaScope = "photos"
	ScopeAlbum      QuotaScope = "album"
	ScopeVideos     QuotaScope = "videos"
	ScopeMessages   QuotaScope = "messages"
)

// QuotaExceededError carries the scope, limit, and observed count of a
// rejected admission. Recover it with errors.As to render the exact reason.
type QuotaExceededError struct {
	Scope       QuotaScope
	AlbumNumber int // set only when Scope == ScopeAlbum
	Limit       int
	Current     int
}

func (e *QuotaExceededError) Error() string {
	if e.Scope == ScopeAlbum {
		return fmt.Sprintf("album %d is full (%d/%d)", e.AlbumNumber, e.Current, e.Limit)
	}
	return fmt.Sprintf("%s quota reached (%d/%d)", e.Scope, e.Current, e.Limit)
}

// FileTooLargeError carries the content type and the ceiling that was exceeded.
type FileTooLargeError struct {
	ContentType ContentType
	MaxBytes    int64
	SizeBytes   int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s file of %d bytes exceeds the %d byte limit", e.ContentType, e.SizeBytes, e.MaxBytes)
}

// =============================================================================
// Convenience constructors
// =============================================================================

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// QuotaExceeded creates a quota rejection for the given scope.
func QuotaExceeded(op string, scope QuotaScope, current, limit int) *Error {
	detail := &QuotaExceededError{Scope: scope, Limit: limit, Current: current}
	return &Error{
		Code:    EQUOTA,
		Op:      op,
		Message: detail.Error(),
		Err:     detail,
	}
}

// AlbumQuotaExceeded creates a quota rejection for one photo album.
func AlbumQuotaExceeded(op string, albumNumber, current, limit int) *Error {
	detail := &QuotaExceededError{Scope: ScopeAlbum, AlbumNumber: albumNumber, Limit: limit, Current: current}
	return &Error{
		Code:    EQUOTA,
		Op:      op,
		Message: detail.Error(),
		Err:     detail,
	}
}

// FileTooLarge creates a size rejection for the given content type.
func FileTooLarge(op string, contentType ContentType, sizeBytes, maxBytes int64) *Error {
	detail := &FileTooLargeError{ContentType: contentType, SizeBytes: sizeBytes, MaxBytes: maxBytes}
	return &Error{
		Code:    ETOOLARGE,
		Op:      op,
		Message: detail.Error(),
		Err:     detail,
	}
}

// Frozen creates an error for mutations on a vault past delivery.
func Frozen(op string) *Error {
	return &Error{
		Code:    EFROZEN,
		Op:      op,
		Message: "Vault has been delivered and can no longer be modified.",
	}
}

// SubscriptionRequired creates the soft payment gate error. Callers are
// expected to surface an upgrade path rather than a hard failure.
func SubscriptionRequired(op string) *Error {
	return &Error{
		Code:    EPAYMENT,
		Op:      op,
		Message: "An active subscription is required to finalize a vault.",
	}
}

// EmptyVault creates the rejection for finalizing a vault with no content.
func EmptyVault(op string) *Error {
	return &Error{
		Code:    EEMPTY,
		Op:      op,
		Message: "Add at least one photo, video, or message before finalizing.",
	}
}

// Transient wraps a retryable network failure.
func Transient(err error, op, message string) *Error {
	return &Error{
		Code:    ETRANSIENT,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsRetryable reports whether the error belongs to the only retryable
// category. A retry must re-run the full check-then-write unit.
func IsRetryable(err error) bool {
	return ErrorCode(err) == ETRANSIENT
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}
