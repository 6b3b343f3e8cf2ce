package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/walletwise/walletwise/internal/apperr"
)

// errorBody is the uniform error envelope: a stable machine-readable kind
// plus a human-readable message, nothing else.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err using the taxonomy's status mapping.
func Error(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	JSON(w, StatusOf(kind), errorBody{Error: errorDetail{
		Kind:    string(kind),
		Message: apperr.MessageOf(err),
	}})
}

// ErrorKind writes an ad-hoc error without wrapping it first.
func ErrorKind(w http.ResponseWriter, kind apperr.Kind, message string) {
	JSON(w, StatusOf(kind), errorBody{Error: errorDetail{
		Kind:    string(kind),
		Message: message,
	}})
}

// StatusOf maps an error kind to its HTTP status code.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidResetToken:
		return http.StatusBadRequest
	case apperr.KindInvalidCredentials, apperr.KindInvalidToken:
		return http.StatusUnauthorized
	case apperr.KindAccountLocked, apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateEmail, apperr.KindDuplicatePhone:
		return http.StatusConflict
	case apperr.KindUpstreamBilling:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
