package apiresponse

import (
	"encoding/json"
	"net/http"
)

// ErrorCode is the closed set of machine-readable error codes. Clients
// branch on the code; messages are for humans and logs only.
type ErrorCode string

const (
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeUsernameLookup ErrorCode = "USERNAME_LOOKUP_ERROR"
	CodeCredential     ErrorCode = "CREDENTIAL_ERROR"
	CodeLoginLocked    ErrorCode = "LOGIN_LOCKED"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeStore          ErrorCode = "STORE_ERROR"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// ApiErrorInfo describes a failed operation. Stack is only ever populated
// in logs, never in a wire response.
type ApiErrorInfo struct {
	ID      string    `json:"id"`
	Message string    `json:"message,omitempty"`
	Stack   string    `json:"stack,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

// ApiResponse is the uniform envelope returned by every operation. Exactly
// one of Data and ApiError is populated.
type ApiResponse[T any] struct {
	ID       string        `json:"id"`
	Data     *T            `json:"data,omitempty"`
	ApiError *ApiErrorInfo `json:"apiError,omitempty"`
}

// OK builds a success envelope carrying data, tagged with the transaction id.
func OK[T any](txID string, data T) ApiResponse[T] {
	return ApiResponse[T]{ID: txID, Data: &data}
}

// Err builds an error envelope tagged with the transaction id.
func Err[T any](txID string, code ErrorCode, message string) ApiResponse[T] {
	return ApiResponse[T]{
		ID:       txID,
		ApiError: &ApiErrorInfo{ID: txID, Message: message, Code: code},
	}
}

// StatusFor maps an error code to its HTTP status class.
func StatusFor(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeConflict:
		return http.StatusBadRequest
	case CodeCredential, CodeLoginLocked:
		return http.StatusUnauthorized
	case CodeUsernameLookup, CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteData writes a success envelope with status 200.
func WriteData[T any](w http.ResponseWriter, txID string, data T) {
	write(w, http.StatusOK, OK(txID, data))
}

// WriteError writes an error envelope with the status derived from code.
func WriteError(w http.ResponseWriter, txID string, code ErrorCode, message string) {
	write(w, StatusFor(code), Err[struct{}](txID, code, message))
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
