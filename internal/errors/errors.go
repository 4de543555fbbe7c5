package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Sentinel errors forming the service error taxonomy. Lower layers return
// these (possibly wrapped); the HTTP layer maps each to exactly one status.
var (
	ErrInvalidURL          = stderrors.New("invalid target URL")
	ErrInvalidCode         = stderrors.New("invalid code")
	ErrDuplicateCode       = stderrors.New("code already exists")
	ErrNotFound            = stderrors.New("link not found")
	ErrGenerationExhausted = stderrors.New("code generation exhausted")
)

// AppError represents an application error with HTTP context.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorResponse is the JSON response format for errors.
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response.
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation errors (400)

func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidInput(details string) *AppError {
	return &AppError{
		Code:       "INVALID_INPUT",
		Message:    "The provided input is invalid",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON(details string) *AppError {
	return &AppError{
		Code:       "INVALID_JSON",
		Message:    "Invalid JSON in request body",
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

// Not found errors (404)

func LinkNotFound(code string) *AppError {
	return &AppError{
		Code:       "LINK_NOT_FOUND",
		Message:    fmt.Sprintf("Link '%s' not found", code),
		StatusCode: http.StatusNotFound,
	}
}

// Conflict errors (409)

func CodeExists(code string) *AppError {
	return &AppError{
		Code:       "CODE_EXISTS",
		Message:    fmt.Sprintf("Short code '%s' already exists", code),
		StatusCode: http.StatusConflict,
	}
}

// Server errors (500)

func Internal(details string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An internal server error occurred",
		Details:    details,
		StatusCode: http.StatusInternalServerError,
	}
}

func GenerationExhausted() *AppError {
	return &AppError{
		Code:       "GENERATION_EXHAUSTED",
		Message:    "Could not assign a free short code, please retry",
		StatusCode: http.StatusInternalServerError,
	}
}
