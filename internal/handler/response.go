package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"go-identity-service/internal/model"
	"go-identity-service/pkg/apierror"
)

func writeAuth(w http.ResponseWriter, status int, resp model.AuthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Unexpected server error"

	var apiErr *apierror.APIError
	var validationErrs validation.Errors
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		message = apiErr.Message
	case errors.As(err, &validationErrs):
		status = http.StatusBadRequest
		message = validationErrs.Error()
	default:
		slog.Error("unhandled error in writeAuthError", "error", err.Error())
	}

	writeAuth(w, status, model.AuthResponse{Success: false, Message: message})
}

func writeBadJSON(w http.ResponseWriter) {
	writeAuth(w, http.StatusBadRequest, model.AuthResponse{
		Success: false,
		Message: "Invalid JSON body",
	})
}
