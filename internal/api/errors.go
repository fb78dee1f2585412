package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"roofing-photo-sync/internal/auth"
	"roofing-photo-sync/internal/queue"
	"roofing-photo-sync/internal/service/photosync"
)

const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorBody `json:"error"`
}

func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: errorBody{Code: code, Message: message}})
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// mapServiceError maps service errors to HTTP status codes.
func mapServiceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, photosync.ErrInvalidRequest):
		return http.StatusBadRequest, ErrCodeInvalidInput, err.Error()
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Foto tidak ditemukan di antrean"
	case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, ErrCodeUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "Terjadi kesalahan internal"
	}
}
