package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // customer | admin
	CreatedAt time.Time `json:"created_at"`
}

// Users is the admin provisioning surface; callers must already hold the
// service-role key.
type Users struct{ DB *pgxpool.Pool }

func (u *Users) Create(ctx context.Context, email, password, role string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, errors.New("valid email is required")
	}
	if len(password) < 8 {
		return User{}, ErrWeakPassword
	}
	if role == "" {
		role = "customer"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var out User
	err = u.DB.QueryRow(ctx, `
		INSERT INTO users(id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, role, created_at`,
		uuid.NewString(), email, string(hash), role,
	).Scan(&out.ID, &out.Email, &out.Role, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserExists
	}
	return out, err
}

// Update resets password and/or role for an existing user.
func (u *Users) Update(ctx context.Context, email, password, role string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	set := `updated_at = now()`
	args := []any{email}
	if password != "" {
		if len(password) < 8 {
			return User{}, ErrWeakPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		args = append(args, string(hash))
		set += `, password_hash = $2`
	}
	if role != "" {
		args = append(args, role)
		if len(args) == 3 {
			set += `, role = $3`
		} else {
			set += `, role = $2`
		}
	}

	var out User
	err := u.DB.QueryRow(ctx,
		`UPDATE users SET `+set+` WHERE email = $1 RETURNING id, email, role, created_at`,
		args...,
	).Scan(&out.ID, &out.Email, &out.Role, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return out, err
}
