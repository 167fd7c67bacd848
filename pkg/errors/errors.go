// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
)

func (e *ZonysError) Error() string {
	msg := fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
	if e.Details != "" {
		msg += " - " + e.Details
	}
	if e.Metadata != nil {
		if stderr, ok := e.Metadata["stderr"]; ok && stderr != "" {
			msg += "\ncommand output: " + stderr
		}
	}
	return msg
}

func (e *ZonysError) WithMetadata(key, value string) *ZonysError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// New creates a new ZonysError for the given code.
func New(code ErrorCode, details string) *ZonysError {
	def, ok := errorDefinitions[code]
	if !ok {
		return &ZonysError{
			Code:       code,
			Domain:     "UNKNOWN",
			Message:    "unknown error",
			Details:    details,
			HTTPStatus: 500,
		}
	}

	return &ZonysError{
		Code:       code,
		Domain:     def.domain,
		Message:    def.message,
		Details:    details,
		HTTPStatus: def.httpStatus,
	}
}

// Is implements the interface consumed by errors.Is.
func (e *ZonysError) Is(target error) bool {
	if t, ok := target.(*ZonysError); ok {
		return e.Code == t.Code && e.Domain == t.Domain
	}
	return false
}

// Is reports whether err matches the sentinel target by code and domain.
func Is(err, target error) bool {
	re, ok := err.(*ZonysError)
	if !ok {
		return false
	}
	if t, ok := target.(*ZonysError); ok {
		return re.Code == t.Code && re.Domain == t.Domain
	}
	return false
}

// Wrap wraps err, preserving its metadata, under a new code.
func Wrap(err error, code ErrorCode) *ZonysError {
	if re, ok := err.(*ZonysError); ok {
		newErr := New(code, re.Details)
		for k, v := range re.Metadata {
			newErr.WithMetadata(k, v)
		}
		newErr.WithMetadata("wrapped_code", fmt.Sprintf("%d", re.Code))
		newErr.WithMetadata("wrapped_domain", string(re.Domain))
		newErr.WithMetadata("wrapped_message", re.Message)
		return newErr
	}
	return New(code, err.Error())
}

func (e *ZonysError) Unwrap() error {
	if e.Metadata != nil {
		if original, ok := e.Metadata["wrapped_error"]; ok {
			return fmt.Errorf("%s", original)
		}
	}
	return nil
}

// IsZonysError reports whether err is a *ZonysError.
func IsZonysError(err error) bool {
	_, ok := err.(*ZonysError)
	return ok
}

// GetCode extracts the error code from err, walking the wrap chain.
func GetCode(err error) (ErrorCode, bool) {
	if err == nil {
		return 0, false
	}
	if re, ok := err.(*ZonysError); ok {
		return re.Code, true
	}
	var re *ZonysError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code ErrorCode) bool {
	got, ok := GetCode(err)
	return ok && got == code
}

// GetHTTPStatus returns the HTTP status associated with err, or 500.
func GetHTTPStatus(err error) int {
	var re *ZonysError
	if errors.As(err, &re) {
		return re.HTTPStatus
	}
	return 500
}
