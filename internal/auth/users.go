// Package auth identifies the user behind a DAV request using app passwords.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// User is an account that can author comments.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserStore manages users in SQLite.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Add creates a new user. An empty display name defaults to the ID.
func (s *UserStore) Add(id, displayName string) (*User, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)

	if id == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if strings.ContainsAny(id, ":/") {
		return nil, fmt.Errorf("user id %q must not contain ':' or '/'", id)
	}
	if displayName == "" {
		displayName = id
	}

	_, err := s.db.Exec(
		"INSERT INTO users (id, display_name) VALUES (?, ?)",
		id, displayName,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("user already exists: %s", id)
		}
		return nil, fmt.Errorf("adding user: %w", err)
	}

	return s.Get(id)
}

// Get returns a user by ID.
func (s *UserStore) Get(id string) (*User, error) {
	var u User
	err := s.db.QueryRow(
		"SELECT id, display_name, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.DisplayName, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// List returns all users.
func (s *UserStore) List() ([]*User, error) {
	rows, err := s.db.Query(
		"SELECT id, display_name, created_at FROM users ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Printf("warning: closing rows: %v\n", cerr)
		}
	}()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// Remove deletes a user and their API keys.
func (s *UserStore) Remove(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", id, ErrUserNotFound)
	}

	if _, err := tx.Exec("DELETE FROM api_keys WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("deleting user keys: %w", err)
	}

	return tx.Commit()
}
