package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"go-identity-service/internal/model"
)

const bcryptCost = 12

// dummyHash is a valid bcrypt digest compared against when the identity is
// unknown, so the failure path costs roughly the same as a real mismatch.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, full_name, phone_number, password_hash,
	failed_login_attempts, locked_until, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PhoneNumber, &u.PasswordHash,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`,
		strings.TrimSpace(phone)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by phone: %w", err)
	}
	return u, nil
}

// CreateIdentity inserts the user row and its role grants in one transaction.
// Unique index violations surface as ErrEmailTaken / ErrPhoneTaken.
func (r *UserRepository) CreateIdentity(ctx context.Context, u model.User, password string, roles []string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("begin create identity: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	created, err := scanUser(tx.QueryRow(ctx,
		`INSERT INTO users (email, full_name, phone_number, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+userColumns,
		strings.TrimSpace(u.Email), u.FullName, strings.TrimSpace(u.PhoneNumber), string(hash), now))
	if err != nil {
		return model.User{}, mapUniqueViolation(err, "create user")
	}

	for _, role := range roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			created.ID, role); err != nil {
			return model.User{}, fmt.Errorf("grant role %q: %w", role, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.User{}, fmt.Errorf("commit create identity: %w", err)
	}
	return created, nil
}

// VerifySecret reports whether the presented secret matches the stored hash.
// Only this boolean crosses the store boundary.
func (r *UserRepository) VerifySecret(u model.User, secret string) bool {
	hash := u.PasswordHash
	if hash == "" {
		hash = dummyHash
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// EqualizeCompare burns a bcrypt comparison against the dummy digest. Called
// on the unknown-identity path so its timing resembles a real bad secret.
func (r *UserRepository) EqualizeCompare(secret string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(secret))
}

func (r *UserRepository) ChangeSecret(ctx context.Context, id int64, current string, next string) error {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return model.ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, string(hash), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("change secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, fullName string, phone string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET full_name = $2, phone_number = $3, updated_at = $4
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, fullName, strings.TrimSpace(phone), time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, mapUniqueViolation(err, "update profile")
	}
	return u, nil
}

func (r *UserRepository) DeleteIdentity(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListRoles(ctx context.Context, id int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, id)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// RecordFailedAttempt bumps the per-identity counter in a single statement so
// concurrent failures cannot under-count. When the incremented counter reaches
// maxAttempts the lock engages and the counter resets to zero, giving the
// identity a fresh allowance once the cool-down elapses.
func (r *UserRepository) RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET
		    failed_login_attempts = CASE WHEN failed_login_attempts + 1 >= $2
		        THEN 0 ELSE failed_login_attempts + 1 END,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= $2
		        THEN $3 ELSE locked_until END,
		    updated_at = now()
		 WHERE id = $1
		 RETURNING failed_login_attempts, locked_until`,
		id, maxAttempts, lockUntil).Scan(&attempts, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, model.ErrUserNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("record failed attempt: %w", err)
	}
	return attempts, lockedUntil, nil
}

func (r *UserRepository) ResetFailedAttempts(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = now()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return nil
}

func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return model.ErrEmailTaken
		case strings.Contains(pgErr.ConstraintName, "phone"):
			return model.ErrPhoneTaken
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
