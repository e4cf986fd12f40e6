// Package storage provides the JSONL-backed services behind the HTTP API:
// user accounts and the project document store with its ownership and
// visibility rules.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cipherstudio/studio/internal/jsonldb"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserIDRequired   = errors.New("user id is required")
	errEmailPwdRequired = errors.New("email and password are required")
	// ErrUserExists is returned when registering an already used email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on authentication failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = errors.New("user not found")
)

// User represents an account (persistent fields only; the password hash
// stays in the storage row and never leaves this package).
type User struct {
	ID       jsonldb.ID `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Created  time.Time  `json:"created"`
	Modified time.Time  `json:"modified"`
}

type userStorage struct {
	User
	PasswordHash string `json:"password_hash"`
}

func (u *userStorage) Clone() *userStorage {
	c := *u
	return &c
}

// GetID returns the userStorage's ID.
func (u *userStorage) GetID() jsonldb.ID {
	return u.ID
}

// Validate checks that the userStorage is valid.
func (u *userStorage) Validate() error {
	if u.ID.IsZero() {
		return errUserIDRequired
	}
	if u.Email == "" {
		return errors.New("email cannot be empty")
	}
	return nil
}

// UserService handles user management and authentication.
type UserService struct {
	table   *jsonldb.Table[*userStorage]
	byEmail *jsonldb.UniqueIndex[string, *userStorage]
}

// NewUserService creates a new user service backed by the given JSONL file.
func NewUserService(tablePath string) (*UserService, error) {
	table, err := jsonldb.NewTable[*userStorage](tablePath)
	if err != nil {
		return nil, err
	}
	byEmail := jsonldb.NewUniqueIndex(table, func(u *userStorage) string { return u.Email })
	return &UserService{table: table, byEmail: byEmail}, nil
}

// Create creates a new user.
func (s *UserService) Create(email, password, name string) (*User, error) {
	if email == "" || password == "" {
		return nil, errEmailPwdRequired
	}
	if s.byEmail.Get(email) != nil {
		return nil, ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now()
	stored := &userStorage{
		User: User{
			ID:       jsonldb.NewID(),
			Email:    email,
			Name:     name,
			Created:  now,
			Modified: now,
		},
		PasswordHash: string(hash),
	}
	if err := s.table.Append(stored); err != nil {
		return nil, err
	}
	user := stored.User
	return &user, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(id jsonldb.ID) (*User, error) {
	if id.IsZero() {
		return nil, errUserIDRequired
	}
	stored := s.table.Get(id)
	if stored == nil {
		return nil, ErrUserNotFound
	}
	user := stored.User
	return &user, nil
}

// GetByEmail retrieves a user by email. O(1) via index.
func (s *UserService) GetByEmail(email string) (*User, error) {
	stored := s.byEmail.Get(email)
	if stored == nil {
		return nil, ErrUserNotFound
	}
	user := stored.User
	return &user, nil
}

// Authenticate verifies user credentials. O(1) lookup via index.
func (s *UserService) Authenticate(email, password string) (*User, error) {
	stored := s.byEmail.Get(email)
	if stored == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	user := stored.User
	return &user, nil
}

// UpdateProfile updates the display name.
func (s *UserService) UpdateProfile(id jsonldb.ID, name string) (*User, error) {
	stored, err := s.table.Modify(id, func(row *userStorage) error {
		if name != "" {
			row.Name = name
		}
		row.Modified = time.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, jsonldb.ErrRowNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user := stored.User
	return &user, nil
}

// ChangePassword verifies the current password and replaces it.
func (s *UserService) ChangePassword(id jsonldb.ID, current, next string) error {
	if next == "" {
		return errors.New("new password cannot be empty")
	}
	_, err := s.table.Modify(id, func(row *userStorage) error {
		if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(current)); err != nil {
			return ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		row.PasswordHash = string(hash)
		row.Modified = time.Now()
		return nil
	})
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Delete removes the account after verifying the password. Owned projects
// are reclaimed by the caller via ProjectService.DeleteAllOwnedBy.
func (s *UserService) Delete(id jsonldb.ID, password string) error {
	stored := s.table.Get(id)
	if stored == nil {
		return ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return s.table.Delete(id)
}
