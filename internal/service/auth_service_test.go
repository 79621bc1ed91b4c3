package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-identity-service/internal/model"
	"go-identity-service/internal/repository"
	"go-identity-service/pkg/apierror"
)

const (
	testMaxAttempts     = 6
	testLockoutDuration = 5 * time.Minute
)

func newTestAuthService(t *testing.T, store UserStore) *AuthService {
	t.Helper()

	tokens, err := NewTokenService("test-secret", "test-issuer", "test-audience", 7*24*time.Hour)
	require.NoError(t, err)

	policy := PasswordPolicy{
		MinLength:     8,
		RequireDigit:  true,
		RequireUpper:  true,
		RequireLower:  true,
		RequireSymbol: true,
	}

	return NewAuthService(store, tokens, policy, testMaxAttempts, testLockoutDuration, nil)
}

func storedUser() model.User {
	return model.User{
		ID:          7,
		Email:       "a@x.com",
		FullName:    "Ada X",
		PhoneNumber: "555",
	}
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.HTTPStatus
}

func TestVerifyCredentials_UnknownIdentity(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	store.On("FindByEmail", mock.Anything, "nobody@x.com").Return(model.User{}, model.ErrUserNotFound)
	store.On("EqualizeCompare", "whatever").Return()

	_, result, err := svc.VerifyCredentials(context.Background(), "nobody@x.com", "whatever")
	require.NoError(t, err)
	assert.Equal(t, VerifyUnknownIdentity, result)

	store.AssertExpectations(t)
}

func TestVerifyCredentials_BadSecretIncrementsCounter(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)
	user := storedUser()

	store.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	store.On("VerifySecret", user, "wrong").Return(false)
	store.On("RecordFailedAttempt", mock.Anything, user.ID, testMaxAttempts, mock.AnythingOfType("time.Time")).
		Return(3, nil, nil)

	_, result, err := svc.VerifyCredentials(context.Background(), user.Email, "wrong")
	require.NoError(t, err)
	assert.Equal(t, VerifyBadSecret, result)

	store.AssertExpectations(t)
}

func TestVerifyCredentials_LockEngagesAtThreshold(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)
	user := storedUser()

	until := time.Now().UTC().Add(testLockoutDuration)
	store.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	store.On("VerifySecret", user, "wrong").Return(false)
	store.On("RecordFailedAttempt", mock.Anything, user.ID, testMaxAttempts, mock.AnythingOfType("time.Time")).
		Return(0, &until, nil)

	_, result, err := svc.VerifyCredentials(context.Background(), user.Email, "wrong")
	require.NoError(t, err)
	assert.Equal(t, VerifyLockedOut, result)
}

func TestVerifyCredentials_LockedRejectsCorrectSecret(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	user := storedUser()
	until := time.Now().UTC().Add(2 * time.Minute)
	user.LockedUntil = &until

	store.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)

	// No VerifySecret expectation: the secret must not even be compared
	// while the lock holds.
	_, result, err := svc.VerifyCredentials(context.Background(), user.Email, "Password123!")
	require.NoError(t, err)
	assert.Equal(t, VerifyLockedOut, result)

	store.AssertExpectations(t)
}

func TestVerifyCredentials_SuccessResetsCounter(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	user := storedUser()
	user.FailedLoginAttempts = 3

	store.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	store.On("VerifySecret", user, "Password123!").Return(true)
	store.On("ResetFailedAttempts", mock.Anything, user.ID).Return(nil)

	_, result, err := svc.VerifyCredentials(context.Background(), user.Email, "Password123!")
	require.NoError(t, err)
	assert.Equal(t, VerifySuccess, result)

	store.AssertExpectations(t)
}

func TestLogin_UniformMessageForUnknownAndBadSecret(t *testing.T) {
	unknown := new(repository.MockUserStore)
	unknown.On("FindByEmail", mock.Anything, "nobody@x.com").Return(model.User{}, model.ErrUserNotFound)
	unknown.On("EqualizeCompare", "pw").Return()

	_, _, errUnknown := newTestAuthService(t, unknown).Login(context.Background(),
		model.LoginRequest{Email: "nobody@x.com", Password: "pw"}, "")

	bad := new(repository.MockUserStore)
	user := storedUser()
	bad.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	bad.On("VerifySecret", user, "pw").Return(false)
	bad.On("RecordFailedAttempt", mock.Anything, user.ID, testMaxAttempts, mock.AnythingOfType("time.Time")).
		Return(1, nil, nil)

	_, _, errBad := newTestAuthService(t, bad).Login(context.Background(),
		model.LoginRequest{Email: user.Email, Password: "pw"}, "")

	// Unknown identity and bad secret are indistinguishable to the caller.
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, errUnknown))
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, errBad))
	assert.Equal(t, errUnknown.Error(), errBad.Error())
	assert.ErrorIs(t, errUnknown, model.ErrInvalidCredentials)
	assert.ErrorIs(t, errBad, model.ErrInvalidCredentials)
}

func TestLogin_MintsTokenWithGatheredRoles(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)
	user := storedUser()

	store.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	store.On("VerifySecret", user, "Password123!").Return(true)
	store.On("ListRoles", mock.Anything, user.ID).Return([]string{"User"}, nil)

	token, got, err := svc.Login(context.Background(),
		model.LoginRequest{Email: user.Email, Password: "Password123!"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.True(t, claims.HasRole("User"))
}

func TestRegister_AssignsUserRoleAndMintsToken(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	created := storedUser()
	created.ID = 101

	store.On("FindByPhone", mock.Anything, "555").Return(model.User{}, model.ErrUserNotFound)
	store.On("CreateIdentity", mock.Anything, mock.AnythingOfType("model.User"), "Password123!", []string{"User"}).
		Return(created, nil)

	token, user, err := svc.Register(context.Background(), model.RegisterRequest{
		FullName:    "Ada X",
		Email:       "a@x.com",
		Password:    "Password123!",
		PhoneNumber: "555",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(101), user.ID)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.Equal(t, []string{"User"}, claims.Roles)

	store.AssertExpectations(t)
}

func TestRegister_RejectsDuplicatePhone(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	store.On("FindByPhone", mock.Anything, "555").Return(storedUser(), nil)

	_, _, err := svc.Register(context.Background(), model.RegisterRequest{
		FullName:    "Someone Else",
		Email:       "b@x.com",
		Password:    "Password123!",
		PhoneNumber: "555",
	}, "")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
	assert.ErrorIs(t, err, model.ErrPhoneTaken)
}

func TestRegister_RejectsWeakPassword(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	_, _, err := svc.Register(context.Background(), model.RegisterRequest{
		FullName:    "Ada X",
		Email:       "a@x.com",
		Password:    "short",
		PhoneNumber: "555",
	}, "")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	// Policy rejection happens before any store access.
	store.AssertExpectations(t)
}

func TestChangePassword_RejectsReuseBeforeStoreAccess(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	claims := &Claims{}
	claims.Subject = "7"

	err := svc.ChangePassword(context.Background(), claims, model.ChangePasswordRequest{
		CurrentPassword:    "Password123!",
		NewPassword:        "Password123!",
		ConfirmNewPassword: "Password123!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
	assert.ErrorIs(t, err, model.ErrPasswordReused)

	// No expectations registered: the store must not have been touched.
	store.AssertExpectations(t)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	claims := &Claims{}
	claims.Subject = "7"

	store.On("ChangeSecret", mock.Anything, int64(7), "Wrong123!", "Fresh456?x").Return(model.ErrPasswordMismatch)

	err := svc.ChangePassword(context.Background(), claims, model.ChangePasswordRequest{
		CurrentPassword:    "Wrong123!",
		NewPassword:        "Fresh456?x",
		ConfirmNewPassword: "Fresh456?x",
	}, "")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
	assert.ErrorIs(t, err, model.ErrPasswordMismatch)
}

func TestProfile_StaleTokenSurfacesNotFound(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	claims := &Claims{}
	claims.Subject = "7"

	store.On("FindByID", mock.Anything, int64(7)).Return(model.User{}, model.ErrUserNotFound)

	_, err := svc.Profile(context.Background(), claims)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUpdateProfile_PhoneConflict(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	claims := &Claims{}
	claims.Subject = "7"

	store.On("UpdateProfile", mock.Anything, int64(7), "Ada X", "556").Return(model.User{}, model.ErrPhoneTaken)

	_, err := svc.UpdateProfile(context.Background(), claims, model.UpdateProfileRequest{
		FullName:    "Ada X",
		PhoneNumber: "556",
	}, "")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
	assert.ErrorIs(t, err, model.ErrPhoneTaken)
}

func TestDeleteAccount(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	claims := &Claims{}
	claims.Subject = "7"

	store.On("DeleteIdentity", mock.Anything, int64(7)).Return(nil)
	require.NoError(t, svc.DeleteAccount(context.Background(), claims, ""))

	gone := new(repository.MockUserStore)
	gone.On("DeleteIdentity", mock.Anything, int64(7)).Return(model.ErrUserNotFound)
	err := newTestAuthService(t, gone).DeleteAccount(context.Background(), claims, "")
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestVerifyCredentials_StoreErrorPropagates(t *testing.T) {
	store := new(repository.MockUserStore)
	svc := newTestAuthService(t, store)

	boom := errors.New("connection refused")
	store.On("FindByEmail", mock.Anything, "a@x.com").Return(model.User{}, boom)

	_, _, err := svc.VerifyCredentials(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, boom)
}
