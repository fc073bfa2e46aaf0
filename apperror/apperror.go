package apperror

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for status mapping and logging.
type Kind string

const (
	KindAuthMissing        Kind = "authentication_missing"
	KindAuthInvalid        Kind = "authentication_invalid"
	KindAuthExpired        Kind = "authentication_expired"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindForbidden          Kind = "authorization_denied"
	KindValidation         Kind = "validation_failed"
	KindBadRequest         Kind = "bad_request"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// FieldError is one violation reported by the request validator.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is the typed error every pipeline stage returns.
// Only the terminal error handler turns it into an HTTP response.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, status int, code, msg string) *Error {
	return &Error{Kind: kind, Status: status, Code: code, Message: msg}
}

func TokenMissing() *Error {
	return newError(KindAuthMissing, fiber.StatusUnauthorized, "TOKEN_MISSING", "Token missing")
}

func TokenInvalid(cause error) *Error {
	e := newError(KindAuthInvalid, fiber.StatusUnauthorized, "TOKEN_INVALID", "Invalid token")
	e.Err = cause
	return e
}

func TokenExpired() *Error {
	return newError(KindAuthExpired, fiber.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired")
}

// InvalidCredentials is shared by "no such email" and "wrong password".
func InvalidCredentials() *Error {
	return newError(KindInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
}

func Forbidden(action string) *Error {
	e := newError(KindForbidden, fiber.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action")
	e.Err = fmt.Errorf("action %s denied", action)
	return e
}

func Validation(details []FieldError) *Error {
	e := newError(KindValidation, fiber.StatusBadRequest, "VALIDATION_FAILED", "Validation failed")
	e.Details = details
	return e
}

func BadRequest(msg string) *Error {
	return newError(KindBadRequest, fiber.StatusBadRequest, "BAD_REQUEST", msg)
}

func NotFound(msg string) *Error {
	return newError(KindNotFound, fiber.StatusNotFound, "NOT_FOUND", msg)
}

// Conflict is reported as 400, matching how duplicate emails have always been answered.
func Conflict(msg string) *Error {
	return newError(KindConflict, fiber.StatusBadRequest, "CONFLICT", msg)
}

func RateLimited() *Error {
	return newError(KindRateLimited, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later.")
}

func Internal(cause error) *Error {
	e := newError(KindInternal, fiber.StatusInternalServerError, "INTERNAL", "Internal server error")
	e.Err = cause
	return e
}

// From normalises any error into an *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return NotFound(fe.Message)
		case fiber.StatusInternalServerError:
			return Internal(fe)
		}
		e := newError(KindBadRequest, fe.Code, "BAD_REQUEST", fe.Message)
		if fe.Code >= fiber.StatusInternalServerError {
			e.Kind, e.Code = KindInternal, "INTERNAL"
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e := Internal(err)
		e.Message = "Request timed out"
		return e
	}
	return Internal(err)
}
