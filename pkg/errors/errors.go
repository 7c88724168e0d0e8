// Package errors provides the structured error types used throughout the
// hydra storage engine.
//
// The error system is built around a hierarchical structure that starts with
// a foundational baseError and extends into domain-specific error types. Each
// specialized type captures the context its domain needs for diagnosis: a
// storage error knows which file and byte offset were involved, a corruption
// error carries the expected and computed checksums, and a validation error
// records which field failed and what rule it violated.
//
// Central to the system is an error code taxonomy that categorizes failures
// programmatically, so callers can branch on ErrorCodeRecordCorrupted versus
// ErrorCodeIO without parsing error messages, and monitoring can group
// failures by code. Codes map directly onto the engine's error contract:
// IO failures, corruption, invalid state (value size mismatch), and
// configuration problems each have a distinct code.
//
// All types implement Unwrap, so errors.Is and errors.As work across the
// chain, and the fluent With* builders keep context capture readable at the
// point of failure.
package errors

import (
	stdErrors "errors"
)

// IsValidationError checks if the given error is a ValidationError or
// contains one in its error chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsStorageError determines if an error is related to storage operations,
// such as file I/O or recovery failures.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsCorruptionError identifies data-integrity failures: CRC mismatches and
// truncated records. Corruption errors generally mean the cask needs
// operator attention; the engine never repairs damage silently.
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return stdErrors.As(err, &ce)
}

// AsValidationError safely extracts a ValidationError from an error chain,
// providing access to validation-specific context such as which field failed
// and what rule was violated.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsStorageError extracts StorageError context from an error chain,
// providing access to the file id, offset and path involved in the failure.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsCorruptionError extracts CorruptionError context from an error chain,
// providing access to the damaged record's location and checksums.
func AsCorruptionError(err error) (*CorruptionError, bool) {
	var ce *CorruptionError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors without a specific code.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}

	if se, ok := AsStorageError(err); ok {
		return se.Code()
	}

	if ce, ok := AsCorruptionError(err); ok {
		return ce.Code()
	}

	return ErrorCodeInternal
}
