package httputil

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidationFailed   = "validation_failed"
	CodeEmailExists        = "email_already_exists"
	CodeUserNotFound       = "user_not_found"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodeInvalidResetToken  = "invalid_reset_token"
	CodeTooManyRequests    = "too_many_requests"
	CodeInternalError      = "internal_error"
)
