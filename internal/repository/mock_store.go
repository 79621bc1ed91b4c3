package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"go-identity-service/internal/model"
)

// MockUserStore is a testify mock of the service.UserStore interface, used by
// service and handler tests so they run without PostgreSQL.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByPhone(ctx context.Context, phone string) (model.User, error) {
	args := m.Called(ctx, phone)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) CreateIdentity(ctx context.Context, u model.User, password string, roles []string) (model.User, error) {
	args := m.Called(ctx, u, password, roles)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) VerifySecret(u model.User, secret string) bool {
	args := m.Called(u, secret)
	return args.Bool(0)
}

func (m *MockUserStore) EqualizeCompare(secret string) {
	m.Called(secret)
}

func (m *MockUserStore) ChangeSecret(ctx context.Context, id int64, current string, next string) error {
	args := m.Called(ctx, id, current, next)
	return args.Error(0)
}

func (m *MockUserStore) UpdateProfile(ctx context.Context, id int64, fullName string, phone string) (model.User, error) {
	args := m.Called(ctx, id, fullName, phone)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) DeleteIdentity(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) ListRoles(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserStore) RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	args := m.Called(ctx, id, maxAttempts, lockUntil)
	var locked *time.Time
	if v := args.Get(1); v != nil {
		locked = v.(*time.Time)
	}
	return args.Int(0), locked, args.Error(2)
}

func (m *MockUserStore) ResetFailedAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// HashSecret mirrors the repository's hashing so tests can seed users whose
// secrets verify with the real bcrypt path.
func HashSecret(secret string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}
