package response

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/verifywoo/pkg/logger"
)

// Envelope is the {success, data} shape the storefront scripts expect.
type Envelope struct {
	Success      bool        `json:"success"`
	Data         interface{} `json:"data"`
	Code         string      `json:"code,omitempty"`
	WaitSeconds  int         `json:"wait_seconds,omitempty"`
	AttemptsLeft int         `json:"attempts_left,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidNonce         = "INVALID_NONCE"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeRateLimit            = "RATE_LIMIT_EXCEEDED"
	CodeDisabled             = "LOGIN_DISABLED"
	CodeExpired              = "OTP_EXPIRED"
	CodeTooManyAttempts      = "TOO_MANY_ATTEMPTS"
	CodeIncorrect            = "OTP_INCORRECT"
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeRegistrationDisabled = "REGISTRATION_DISABLED"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeUnknownAction        = "UNKNOWN_ACTION"
)

func Write(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, data interface{}) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Failure(w http.ResponseWriter, statusCode int, message, code string) {
	Write(w, statusCode, Envelope{Success: false, Data: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	Failure(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Forbidden(w http.ResponseWriter, message string) {
	Failure(w, http.StatusForbidden, message, CodeInvalidNonce)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Failure(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func InternalError(w http.ResponseWriter, message string) {
	Failure(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	Failure(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
