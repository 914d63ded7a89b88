package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Tokens are opaque random strings, valid for 30 days.
const tokenTTL = 30 * 24 * time.Hour

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PostgresStore holds users and their issued bearer tokens.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Login checks the credentials and issues a fresh bearer token.
func (s *PostgresStore) Login(ctx context.Context, email, password string) (*User, string, error) {
	var user User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email=$1`, email).
		Scan(&user.ID, &user.Name, &user.Email, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token := uuid.New().String() + uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tokens (token, user_id, expires_at, created_at) VALUES ($1,$2,$3,$4)`,
		token, user.ID, time.Now().UTC().Add(tokenTTL), time.Now().UTC())
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return &user, token, nil
}

// Validate resolves a bearer token to its user, rejecting unknown and
// expired tokens.
func (s *PostgresStore) Validate(ctx context.Context, token string) (*User, error) {
	var user User
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, t.expires_at
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token=$1`, token).
		Scan(&user.ID, &user.Name, &user.Email, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("validate token: %w", err)
	}

	if time.Now().UTC().After(expiresAt) {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

// EnsureAdmin seeds the admin account when the users table is empty.
func (s *PostgresStore) EnsureAdmin(ctx context.Context, name, email, password string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`,
		uuid.New().String(), name, email, string(hash), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
