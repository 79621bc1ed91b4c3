package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-identity-service/internal/model"
)

// MemoryUserStore is an in-memory implementation of the user-store contract
// with the same per-identity atomic failed-attempt semantics as the SQL
// store. Used by the integration suite and concurrency tests.
type MemoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
	roles  map[int64][]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		nextID: 1,
		users:  make(map[int64]*model.User),
		roles:  make(map[int64][]string),
	}
}

func (s *MemoryUserStore) FindByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return *u, nil
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return *u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *MemoryUserStore) FindByPhone(_ context.Context, phone string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.PhoneNumber == strings.TrimSpace(phone) {
			return *u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *MemoryUserStore) CreateIdentity(_ context.Context, u model.User, password string, roles []string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, model.ErrEmailTaken
		}
		if existing.PhoneNumber == u.PhoneNumber {
			return model.User{}, model.ErrPhoneTaken
		}
	}

	now := time.Now().UTC()
	created := u
	created.ID = s.nextID
	created.PasswordHash = string(hash)
	created.CreatedAt = now
	created.UpdatedAt = now
	s.nextID++

	s.users[created.ID] = &created
	s.roles[created.ID] = append([]string(nil), roles...)
	return created, nil
}

func (s *MemoryUserStore) VerifySecret(u model.User, secret string) bool {
	hash := u.PasswordHash
	if hash == "" {
		hash = dummyHash
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func (s *MemoryUserStore) EqualizeCompare(secret string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(secret))
}

func (s *MemoryUserStore) ChangeSecret(_ context.Context, id int64, current string, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return model.ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.MinCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryUserStore) UpdateProfile(_ context.Context, id int64, fullName string, phone string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}

	for otherID, other := range s.users {
		if otherID != id && other.PhoneNumber == strings.TrimSpace(phone) {
			return model.User{}, model.ErrPhoneTaken
		}
	}

	u.FullName = fullName
	u.PhoneNumber = strings.TrimSpace(phone)
	u.UpdatedAt = time.Now().UTC()
	return *u, nil
}

func (s *MemoryUserStore) DeleteIdentity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.roles, id)
	return nil
}

func (s *MemoryUserStore) ListRoles(_ context.Context, id int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.roles[id]...), nil
}

// RecordFailedAttempt mirrors the SQL store: increment and threshold check
// happen under one lock, and crossing the threshold engages the lock while
// zeroing the counter.
func (s *MemoryUserStore) RecordFailedAttempt(_ context.Context, id int64, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return 0, nil, model.ErrUserNotFound
	}

	if u.FailedLoginAttempts+1 >= maxAttempts {
		u.FailedLoginAttempts = 0
		until := lockUntil
		u.LockedUntil = &until
	} else {
		u.FailedLoginAttempts++
	}
	u.UpdatedAt = time.Now().UTC()
	return u.FailedLoginAttempts, u.LockedUntil, nil
}

func (s *MemoryUserStore) ResetFailedAttempts(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}
