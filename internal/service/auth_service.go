package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go-identity-service/internal/event"
	"go-identity-service/internal/model"
	"go-identity-service/pkg/apierror"
)

// UserStore is the relational user-store collaborator. The repository package
// provides the PostgreSQL implementation.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByPhone(ctx context.Context, phone string) (model.User, error)
	CreateIdentity(ctx context.Context, u model.User, password string, roles []string) (model.User, error)
	VerifySecret(u model.User, secret string) bool
	EqualizeCompare(secret string)
	ChangeSecret(ctx context.Context, id int64, current string, next string) error
	UpdateProfile(ctx context.Context, id int64, fullName string, phone string) (model.User, error)
	DeleteIdentity(ctx context.Context, id int64) error
	ListRoles(ctx context.Context, id int64) ([]string, error)
	RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	ResetFailedAttempts(ctx context.Context, id int64) error
}

// VerifyResult is the credential verification verdict.
type VerifyResult int

const (
	VerifySuccess VerifyResult = iota
	VerifyUnknownIdentity
	VerifyBadSecret
	VerifyLockedOut
)

type AuthService struct {
	store           UserStore
	tokens          *TokenService
	policy          PasswordPolicy
	maxAttempts     int
	lockoutDuration time.Duration
	bus             event.Bus
	clock           func() time.Time
}

func NewAuthService(store UserStore, tokens *TokenService, policy PasswordPolicy, maxAttempts int, lockoutDuration time.Duration, bus event.Bus) *AuthService {
	return &AuthService{
		store:           store,
		tokens:          tokens,
		policy:          policy,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
		bus:             bus,
		clock:           time.Now,
	}
}

// SetClock overrides the wall clock. Test hook only.
func (s *AuthService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// VerifyCredentials checks the presented secret against the store and applies
// the lockout policy. The failed-attempt update is a single atomic statement
// in the store, so parallel failures against one identity cannot miss the
// threshold.
func (s *AuthService) VerifyCredentials(ctx context.Context, email string, password string) (model.User, VerifyResult, error) {
	now := s.clock().UTC()

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		// Burn a hash comparison so this path is not obviously faster
		// than a bad secret.
		s.store.EqualizeCompare(password)
		return model.User{}, VerifyUnknownIdentity, nil
	}
	if err != nil {
		return model.User{}, VerifyBadSecret, err
	}

	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return user, VerifyLockedOut, nil
	}

	if !s.store.VerifySecret(user, password) {
		_, lockedUntil, err := s.store.RecordFailedAttempt(ctx, user.ID, s.maxAttempts, now.Add(s.lockoutDuration))
		if err != nil {
			return user, VerifyBadSecret, err
		}
		if lockedUntil != nil && now.Before(*lockedUntil) {
			s.publish(event.TypeAccountLocked, user, "", "too many failed login attempts")
			return user, VerifyLockedOut, nil
		}
		return user, VerifyBadSecret, nil
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.store.ResetFailedAttempts(ctx, user.ID); err != nil {
			return user, VerifySuccess, err
		}
	}
	return user, VerifySuccess, nil
}

// Login verifies credentials, gathers the role memberships, and mints the
// bearer token. Claims gathering completes before minting begins; the mint
// itself performs no store access.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest, clientIP string) (string, model.User, error) {
	user, result, err := s.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return "", model.User{}, err
	}

	switch result {
	case VerifyUnknownIdentity, VerifyBadSecret:
		s.publish(event.TypeLoginFailed, user, clientIP, "invalid credentials for "+req.Email)
		return "", model.User{}, apierror.Wrap("UNAUTHORIZED",
			"Invalid email or password", http.StatusUnauthorized, model.ErrInvalidCredentials)
	case VerifyLockedOut:
		s.publish(event.TypeLoginFailed, user, clientIP, "account locked")
		return "", model.User{}, apierror.Wrap("LOCKED_OUT",
			"Account is temporarily locked; try again later", http.StatusUnauthorized, model.ErrAccountLocked)
	}

	roles, err := s.store.ListRoles(ctx, user.ID)
	if err != nil {
		return "", model.User{}, err
	}

	token, err := s.tokens.Mint(user, roles, s.clock().UTC())
	if err != nil {
		return "", model.User{}, err
	}

	s.publish(event.TypeLoginSucceeded, user, clientIP, "")
	return token, user, nil
}

// Register creates a new identity with the default User role and returns a
// freshly minted token, mirroring login.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest, clientIP string) (string, model.User, error) {
	if err := s.policy.Validate(req.Password); err != nil {
		return "", model.User{}, err
	}

	if _, err := s.store.FindByPhone(ctx, req.PhoneNumber); err == nil {
		return "", model.User{}, apierror.Wrap("PHONE_TAKEN",
			"Phone number already exists", http.StatusBadRequest, model.ErrPhoneTaken)
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return "", model.User{}, err
	}

	roles := []string{model.RoleUser}
	user, err := s.store.CreateIdentity(ctx, model.User{
		Email:       strings.TrimSpace(req.Email),
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
	}, req.Password, roles)
	if errors.Is(err, model.ErrEmailTaken) {
		return "", model.User{}, apierror.Wrap("EMAIL_TAKEN",
			"Email already exists", http.StatusBadRequest, model.ErrEmailTaken)
	}
	if errors.Is(err, model.ErrPhoneTaken) {
		return "", model.User{}, apierror.Wrap("PHONE_TAKEN",
			"Phone number already exists", http.StatusBadRequest, model.ErrPhoneTaken)
	}
	if err != nil {
		return "", model.User{}, err
	}

	token, err := s.tokens.Mint(user, roles, s.clock().UTC())
	if err != nil {
		return "", model.User{}, err
	}

	s.publish(event.TypeUserRegistered, user, clientIP, "")
	return token, user, nil
}

// Logout has no server-side token state to discard; it exists so clients get
// a uniform envelope and the event lands in the audit trail.
func (s *AuthService) Logout(claims *Claims, clientIP string) {
	s.publish(event.TypeLogout, userFromClaims(claims), clientIP, "")
}

// Profile loads the identity behind a verified token. A missing row means the
// token outlived its account.
func (s *AuthService) Profile(ctx context.Context, claims *Claims) (model.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return model.User{}, apierror.Wrap("UNAUTHORIZED",
			"Invalid token subject", http.StatusUnauthorized, model.ErrUnauthorized)
	}

	user, err := s.store.FindByID(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.Wrap("NOT_FOUND",
			"User not found", http.StatusNotFound, model.ErrUserNotFound)
	}
	return user, err
}

// ChangePassword rejects a reused password before any store access, then
// delegates the old-secret check and rehash to the store.
func (s *AuthService) ChangePassword(ctx context.Context, claims *Claims, req model.ChangePasswordRequest, clientIP string) error {
	if req.NewPassword == req.CurrentPassword {
		return apierror.Wrap("PASSWORD_REUSED",
			"New password must differ from the current password", http.StatusBadRequest, model.ErrPasswordReused)
	}

	if err := s.policy.Validate(req.NewPassword); err != nil {
		return err
	}

	id, err := claims.UserID()
	if err != nil {
		return apierror.Wrap("UNAUTHORIZED",
			"Invalid token subject", http.StatusUnauthorized, model.ErrUnauthorized)
	}

	err = s.store.ChangeSecret(ctx, id, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, model.ErrPasswordMismatch) {
		return apierror.Wrap("BAD_PASSWORD",
			"Current password is incorrect", http.StatusBadRequest, model.ErrPasswordMismatch)
	}
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.Wrap("NOT_FOUND",
			"User not found", http.StatusNotFound, model.ErrUserNotFound)
	}
	if err != nil {
		return err
	}

	s.publish(event.TypePasswordChanged, userFromClaims(claims), clientIP, "")
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, claims *Claims, req model.UpdateProfileRequest, clientIP string) (model.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return model.User{}, apierror.Wrap("UNAUTHORIZED",
			"Invalid token subject", http.StatusUnauthorized, model.ErrUnauthorized)
	}

	user, err := s.store.UpdateProfile(ctx, id, strings.TrimSpace(req.FullName), strings.TrimSpace(req.PhoneNumber))
	if errors.Is(err, model.ErrPhoneTaken) {
		return model.User{}, apierror.Wrap("PHONE_TAKEN",
			"Phone number already exists", http.StatusBadRequest, model.ErrPhoneTaken)
	}
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.Wrap("NOT_FOUND",
			"User not found", http.StatusNotFound, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, err
	}

	s.publish(event.TypeProfileUpdated, user, clientIP, "")
	return user, nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, claims *Claims, clientIP string) error {
	id, err := claims.UserID()
	if err != nil {
		return apierror.Wrap("UNAUTHORIZED",
			"Invalid token subject", http.StatusUnauthorized, model.ErrUnauthorized)
	}

	err = s.store.DeleteIdentity(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.Wrap("NOT_FOUND",
			"User not found", http.StatusNotFound, model.ErrUserNotFound)
	}
	if err != nil {
		return err
	}

	s.publish(event.TypeAccountDeleted, userFromClaims(claims), clientIP, "")
	return nil
}

// VerifyToken exposes token verification to the transport middleware.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	return s.tokens.Verify(tokenString, s.clock().UTC())
}

func (s *AuthService) publish(t event.Type, user model.User, ip string, detail string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:       t,
		OccurredAt: s.clock().UTC(),
		ActorID:    user.ID,
		ActorEmail: user.Email,
		ActorIP:    ip,
		Detail:     detail,
	})
}

func userFromClaims(claims *Claims) model.User {
	if claims == nil {
		return model.User{}
	}
	id, err := claims.UserID()
	if err != nil {
		id = 0
	}
	return model.User{ID: id, Email: claims.Email, FullName: claims.Name}
}
