package handler

import (
	"encoding/json"
	"net/http"

	"go-identity-service/internal/middleware"
	"go-identity-service/internal/model"
	"go-identity-service/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadJSON(w)
		return
	}
	if err := payload.Validate(); err != nil {
		writeAuthError(w, err)
		return
	}

	token, user, err := h.service.Register(r.Context(), payload, middleware.ClientIP(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	dto := user.DTO()
	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    &dto,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadJSON(w)
		return
	}
	if err := payload.Validate(); err != nil {
		writeAuthError(w, err)
		return
	}

	token, user, err := h.service.Login(r.Context(), payload, middleware.ClientIP(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	dto := user.DTO()
	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    &dto,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, claims *service.Claims) {
	h.service.Logout(claims, middleware.ClientIP(r))
	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Logout successful",
	})
}

func (h *AuthHandler) ShowProfile(w http.ResponseWriter, r *http.Request, claims *service.Claims) {
	user, err := h.service.Profile(r.Context(), claims)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	dto := user.DTO()
	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Profile retrieved successfully",
		User:    &dto,
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request, claims *service.Claims) {
	defer r.Body.Close()

	var payload model.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadJSON(w)
		return
	}
	if err := payload.Validate(); err != nil {
		writeAuthError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims, payload, middleware.ClientIP(r)); err != nil {
		writeAuthError(w, err)
		return
	}

	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Password changed successfully",
	})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, claims *service.Claims) {
	defer r.Body.Close()

	var payload model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadJSON(w)
		return
	}
	if err := payload.Validate(); err != nil {
		writeAuthError(w, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims, payload, middleware.ClientIP(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	dto := user.DTO()
	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    &dto,
	})
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request, claims *service.Claims) {
	if err := h.service.DeleteAccount(r.Context(), claims, middleware.ClientIP(r)); err != nil {
		writeAuthError(w, err)
		return
	}

	writeAuth(w, http.StatusOK, model.AuthResponse{
		Success: true,
		Message: "Account deleted successfully",
	})
}
