package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned when an application password does not match.
// Unknown names and wrong secrets are deliberately indistinguishable.
var ErrBadCredentials = errors.New("store: bad credentials")

// SeedAppPassword stores a bcrypt-hashed application password under name,
// unless one with that name already exists. Used at startup to bootstrap a
// first credential from config.
func (s *Store) SeedAppPassword(ctx context.Context, name, secret string) error {
	var exists int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM app_passwords WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: seed app password: %w", err)
	}
	if exists > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("store: hash app password: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO app_passwords (id, name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		uuid.Must(uuid.NewV7()).String(), name, string(hash), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: seed app password: %w", err)
	}
	return nil
}

// VerifyAppPassword checks a name/secret pair against the stored bcrypt
// hashes and records the use. Returns ErrBadCredentials on any mismatch.
func (s *Store) VerifyAppPassword(ctx context.Context, name, secret string) error {
	var hash string
	err := s.DB.QueryRowContext(ctx,
		`SELECT password_hash FROM app_passwords WHERE name = ?`, name).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway so unknown names cost the same as wrong
		// secrets.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZwiYcx4CPBB5R4uX0T9/rQZqRjW1y"), []byte(secret))
		return ErrBadCredentials
	}
	if err != nil {
		return fmt.Errorf("store: verify app password: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
		return ErrBadCredentials
	}

	_, _ = s.DB.ExecContext(ctx,
		`UPDATE app_passwords SET last_used_at = ? WHERE name = ?`,
		time.Now().UnixMilli(), name)
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
