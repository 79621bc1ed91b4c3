package service

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-identity-service/internal/model"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()

	svc, err := NewTokenService("test-secret", "test-issuer", "test-audience", 7*24*time.Hour)
	require.NoError(t, err)
	return svc
}

func testUser() model.User {
	return model.User{
		ID:          42,
		Email:       "a@x.com",
		FullName:    "Ada X",
		PhoneNumber: "555",
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t)
	now := time.Now().UTC().Truncate(time.Second)

	token, err := svc.Mint(testUser(), []string{"User", "Admin"}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	claims, err := svc.Verify(token, now)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "Ada X", claims.Name)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, []string{"User", "Admin"}, claims.Roles)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenService_NoRoles(t *testing.T) {
	svc := newTestTokenService(t)
	now := time.Now().UTC()

	token, err := svc.Mint(testUser(), nil, now)
	require.NoError(t, err)

	claims, err := svc.Verify(token, now)
	require.NoError(t, err)
	assert.Empty(t, claims.Roles)
	assert.False(t, claims.HasRole("User"))
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokenService(t)
	now := time.Now().UTC()

	token, err := svc.Mint(testUser(), []string{"User"}, now)
	require.NoError(t, err)

	// Still valid just before the boundary.
	_, err = svc.Verify(token, now.Add(7*24*time.Hour-time.Second))
	require.NoError(t, err)

	// Any epsilon past the lifetime is expired.
	_, err = svc.Verify(token, now.Add(7*24*time.Hour+time.Second))
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenService_TamperedPayload(t *testing.T) {
	svc := newTestTokenService(t)
	now := time.Now().UTC()

	token, err := svc.Mint(testUser(), []string{"User"}, now)
	require.NoError(t, err)

	// Change a single byte inside the payload and keep the original
	// signature. The JSON stays valid so the failure is the signature.
	parts := strings.Split(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	require.Contains(t, string(payload), "a@x.com")

	tampered := bytes.Replace(payload, []byte("a@x.com"), []byte("b@x.com"), 1)
	parts[1] = base64.RawURLEncoding.EncodeToString(tampered)

	_, err = svc.Verify(strings.Join(parts, "."), now)
	assert.ErrorIs(t, err, model.ErrTokenSignatureInvalid)
}

func TestTokenService_Malformed(t *testing.T) {
	svc := newTestTokenService(t)
	now := time.Now().UTC()

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d", "!!.!!.!!"} {
		_, err := svc.Verify(raw, now)
		assert.ErrorIs(t, err, model.ErrTokenMalformed, "input %q", raw)
	}
}

func TestTokenService_IssuerIsolation(t *testing.T) {
	now := time.Now().UTC()

	minter, err := NewTokenService("test-secret", "issuer-x", "test-audience", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService("test-secret", "issuer-y", "test-audience", time.Hour)
	require.NoError(t, err)

	token, err := minter.Mint(testUser(), []string{"User"}, now)
	require.NoError(t, err)

	_, err = verifier.Verify(token, now)
	assert.ErrorIs(t, err, model.ErrTokenIssuerMismatch)
}

func TestTokenService_AudienceMismatch(t *testing.T) {
	now := time.Now().UTC()

	minter, err := NewTokenService("test-secret", "test-issuer", "aud-x", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService("test-secret", "test-issuer", "aud-y", time.Hour)
	require.NoError(t, err)

	token, err := minter.Mint(testUser(), []string{"User"}, now)
	require.NoError(t, err)

	_, err = verifier.Verify(token, now)
	assert.ErrorIs(t, err, model.ErrTokenAudienceMismatch)
}

func TestTokenService_KeyRotation(t *testing.T) {
	now := time.Now().UTC()

	oldKey, err := NewTokenService("old-secret", "test-issuer", "test-audience", time.Hour)
	require.NoError(t, err)
	newKey, err := NewTokenService("new-secret", "test-issuer", "test-audience", time.Hour)
	require.NoError(t, err)

	token, err := oldKey.Mint(testUser(), []string{"User"}, now)
	require.NoError(t, err)

	// A token signed under the previous key must be rejected after rotation.
	_, err = newKey.Verify(token, now)
	assert.ErrorIs(t, err, model.ErrTokenSignatureInvalid)
}

func TestTokenService_RejectsMissingConfig(t *testing.T) {
	_, err := NewTokenService("", "iss", "aud", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService("secret", "", "aud", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService("secret", "iss", "aud", 0)
	assert.Error(t, err)
}

func TestClaims_UserID_InvalidSubject(t *testing.T) {
	for _, subject := range []string{"", "abc", "-1", "0"} {
		c := &Claims{}
		c.Subject = subject
		_, err := c.UserID()
		assert.Error(t, err, "subject %q", subject)
	}
}
