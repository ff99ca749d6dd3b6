// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes form a closed taxonomy. Every failure leaving this package
// carries exactly one of these codes; statusByCode maps each to the HTTP
// status the transport layer should answer with.
const (
	CodeValidation   = "AUTH_VALIDATION"
	CodeUnauthorized = "AUTH_UNAUTHORIZED"
	CodeInvalidToken = "AUTH_INVALID_TOKEN"
	CodeInvalidOTP   = "AUTH_INVALID_OTP"
	CodeOTPExpired   = "AUTH_OTP_EXPIRED"
	CodeConflict     = "AUTH_CONFLICT"
	CodeNotFound     = "AUTH_NOT_FOUND"
	CodeStoreDown    = "STORE_UNAVAILABLE"
	CodeRepository   = "REPOSITORY_ERROR"
)

var statusByCode = map[string]int{
	CodeValidation:   http.StatusBadRequest,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeInvalidToken: http.StatusUnauthorized,
	CodeInvalidOTP:   http.StatusUnauthorized,
	CodeOTPExpired:   http.StatusUnauthorized,
	CodeConflict:     http.StatusConflict,
	CodeNotFound:     http.StatusNotFound,
	CodeStoreDown:    http.StatusServiceUnavailable,
	CodeRepository:   http.StatusInternalServerError,
}

// ErrorCode extracts the taxonomy code from an error.
// Errors without a recognized code report REPOSITORY_ERROR, the opaque
// passthrough kind.
func ErrorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			if _, known := statusByCode[code]; known {
				return code
			}
		}
	}
	return CodeRepository
}

// StatusCode maps an error to its HTTP status.
func StatusCode(err error) int {
	return statusByCode[ErrorCode(err)]
}

// Response is the stable failure shape surfaced to clients.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// FailureResponse builds the client-visible shape for an error. The
// message is the outermost error message only; wrapped causes stay
// server-side.
func FailureResponse(err error) Response {
	return Response{
		Success: false,
		Error:   ErrorCode(err),
		Message: err.Error(),
	}
}
