package utils

import (
	"encoding/json"
	"net/http"

	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
)

// Envelope is the JSON body every API response is wrapped in. Errors always
// carry a code so clients can distinguish, say, a malformed snapshot from a
// missing one without string-matching messages.
type Envelope struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error half of the envelope.
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes any value as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess wraps data in a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError writes an AppError using its own status code.
func WriteError(w http.ResponseWriter, err *errors.AppError) error {
	return WriteJSON(w, err.StatusCode, Envelope{
		Success: false,
		Error: &ErrorDetail{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	})
}

// WriteErrorMessage writes an ad-hoc error without constructing an AppError.
func WriteErrorMessage(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorDetail{Code: code, Message: message},
	})
}
