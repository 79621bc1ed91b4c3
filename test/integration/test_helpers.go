//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-identity-service/internal/config"
	"go-identity-service/internal/event"
	"go-identity-service/internal/handler"
	"go-identity-service/internal/middleware"
	"go-identity-service/internal/model"
	"go-identity-service/internal/repository"
	"go-identity-service/internal/router"
	"go-identity-service/internal/service"
)

type testEnv struct {
	server *httptest.Server
	store  *repository.MemoryUserStore
	audit  *repository.MemoryAuditStore
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		ServerPort:            "8080",
		RequestTimeout:        15 * time.Second,
		JWTSecret:             "test-secret",
		JWTIssuer:             "test-issuer",
		JWTAudience:           "test-audience",
		JWTExpireDays:         7,
		PasswordMinLength:     8,
		PasswordRequireDigit:  true,
		PasswordRequireUpper:  true,
		PasswordRequireLower:  true,
		PasswordRequireSymbol: true,
		LockoutMaxAttempts:    6,
		LockoutDuration:       5 * time.Minute,
		CORSOrigins:           []string{"*"},
		RateLimitRPM:          1000,
		AuthRateLimitRPM:      1000,
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenLifetime())
	require.NoError(t, err)

	policy := service.PasswordPolicy{
		MinLength:     cfg.PasswordMinLength,
		RequireDigit:  cfg.PasswordRequireDigit,
		RequireUpper:  cfg.PasswordRequireUpper,
		RequireLower:  cfg.PasswordRequireLower,
		RequireSymbol: cfg.PasswordRequireSymbol,
	}

	store := repository.NewMemoryUserStore()
	auditStore := repository.NewMemoryAuditStore()
	bus := event.NewBus()

	authService := service.NewAuthService(store, tokens, policy, cfg.LockoutMaxAttempts, cfg.LockoutDuration, bus)
	auditService := service.NewAuditService(auditStore)

	auditCtx, auditCancel := context.WithCancel(context.Background())
	go auditService.Run(auditCtx, bus)
	t.Cleanup(auditCancel)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:  handler.NewAuthHandler(authService),
		Audit: handler.NewAuditHandler(auditService),
	})

	server := httptest.NewServer(appRouter)
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: store, audit: auditStore, auth: authService}
}

func (e *testEnv) do(t *testing.T, method string, path string, body any, token string) (*http.Response, model.AuthResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope model.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func (e *testEnv) register(t *testing.T, email string, phone string, password string) model.AuthResponse {
	t.Helper()

	resp, envelope := e.do(t, http.MethodPost, "/api/Auth/Register", model.RegisterRequest{
		FullName:    "Test User",
		Email:       email,
		Password:    password,
		PhoneNumber: phone,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
	require.NotEmpty(t, envelope.Token)
	return envelope
}
