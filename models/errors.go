package models

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Base errors, related to default API status codes
var (
	// BadParameterError is rendered with the http status code 400
	BadParameterError = errors.New("bad parameter")

	// UnAuthorizedError is rendered with the http status code 401
	UnAuthorizedError = errors.New("unauthorized")

	// ForbiddenError is rendered with the http status code 403
	ForbiddenError = errors.New("forbidden")

	// NotFoundError is rendered with the http status code 404
	NotFoundError = errors.New("not found")

	// ConflictError is rendered with the http status code 409
	ConflictError = errors.New("duplicate value")

	// UpstreamUnavailableError is rendered with the http status code 502
	UpstreamUnavailableError = errors.New("upstream unavailable")
)

// Courier session errors
var (
	// The courier platform rejected the credentials, or the exchange failed at the network level.
	ErrUpstreamAuthFailed = errors.Wrap(UnAuthorizedError, "courier authentication failed")

	// Same as ErrUpstreamAuthFailed for callers, but logged and counted on its own.
	ErrUpstreamAuthTimeout = errors.Wrap(ErrUpstreamAuthFailed, "courier authentication timed out")

	// The exchange succeeded but no known token location matched: contract drift on the courier side.
	ErrResponseUnparseable = errors.New("courier authentication response could not be parsed")

	// A downstream call was refused with a token we considered fresh.
	ErrUpstreamTokenRejected = errors.Wrap(UnAuthorizedError, "courier rejected the session token")

	ErrMissingCourierPassword = errors.Wrap(BadParameterError, "no courier password configured for this account")
)

type FieldValidationError map[string]string

func (e FieldValidationError) Error() string {
	return fmt.Sprintf("%v", map[string]string(e))
}
