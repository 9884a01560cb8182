package dto

type APIErrorResponse struct {
	Success   bool     `json:"success"`
	Error     APIError `json:"error"`
	Timestamp string   `json:"timestamp"`
}

type APIError struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

type ErrorCode string

const (
	// courier session related
	AuthFailed     ErrorCode = "AUTH_FAILED"
	AuthTimeout    ErrorCode = "AUTH_TIMEOUT"
	TokenRejected  ErrorCode = "TOKEN_REJECTED"
	MissingCourier ErrorCode = "MISSING_COURIER_CREDENTIALS"

	// courier platform related
	UpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	UnparseableResponse ErrorCode = "UNPARSEABLE_RESPONSE"

	// general
	BadRequest    ErrorCode = "BAD_REQUEST"
	Unauthorized  ErrorCode = "UNAUTHORIZED"
	Forbidden     ErrorCode = "FORBIDDEN"
	NotFound      ErrorCode = "NOT_FOUND"
	Conflict      ErrorCode = "CONFLICT"
	InternalError ErrorCode = "INTERNAL_ERROR"
)
