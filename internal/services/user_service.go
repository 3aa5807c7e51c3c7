package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/insight-board-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(name, email, password string) (models.User, error)
	Authenticate(email, password string) (models.User, error)
	GetUserByID(id int64) (models.User, error)
	UpdateProfile(id int64, update ProfileUpdate) (models.User, error)
	ListUsers() ([]models.User, error)
	CountUsers() (int, error)
}

// ProfileUpdate carries the fields of a profile update request. Name and
// Email are always applied; the password is rotated only when NewPassword is
// set, and rotation requires CurrentPassword to match the stored hash.
type ProfileUpdate struct {
	Name            string
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UserService provides business logic for accounts and credentials.
type UserService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events}
}

// Signup registers a new user and returns the created row.
//
// The email existence pre-check and the insert are not atomic; the UNIQUE
// constraint on users.email is the authoritative backstop, and a constraint
// violation at insert time surfaces as ErrEmailExists just like the pre-check.
func (s *UserService) Signup(name, email, password string) (models.User, error) {
	var existingID int64
	err := s.db.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&existingID)
	if err == nil {
		return models.User{}, ErrEmailExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	stmt, err := s.db.Prepare("INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(name, email, string(hashedPassword))
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return models.User{}, ErrEmailExists
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	s.events.CreateEvent("auth.signup", "info", fmt.Sprintf("User '%s' signed up.", user.Email), &user.ID)
	return user, nil
}

// Authenticate verifies a user's credentials. An unknown email and a wrong
// password both return ErrInvalidCredentials so callers cannot probe for
// registered addresses.
func (s *UserService) Authenticate(email, password string) (models.User, error) {
	user, err := s.getUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.events.CreateEvent("auth.login.fail", "warn", fmt.Sprintf("Failed login attempt for '%s'.", email), &user.ID)
		return models.User{}, ErrInvalidCredentials
	}

	// Don't hand the password hash back to callers
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id int64) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, name, email, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// getUserByEmail retrieves a single user by email, including the password hash.
func (s *UserService) getUserByEmail(email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateProfile applies a profile update for the given user. Name and email
// are applied unconditionally; the password hash changes only when a rotation
// was requested and the current password re-verified.
func (s *UserService) UpdateProfile(id int64, update ProfileUpdate) (models.User, error) {
	var current models.User
	row := s.db.QueryRow("SELECT id, name, email, password_hash FROM users WHERE id = ?", id)
	err := row.Scan(&current.ID, &current.Name, &current.Email, &current.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if update.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(current.PasswordHash), []byte(update.CurrentPassword)); err != nil {
			return models.User{}, ErrInvalidCredentials
		}
	}

	// Same check-then-act shape as Signup: the UNIQUE constraint backs up
	// this pre-check against a concurrent email change.
	var otherID int64
	err = s.db.QueryRow("SELECT id FROM users WHERE email = ? AND id != ?", update.Email, id).Scan(&otherID)
	if err == nil {
		return models.User{}, ErrEmailExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("failed to check email: %w", err)
	}

	query := "UPDATE users SET name = ?, email = ?"
	args := []interface{}{update.Name, update.Email}
	if update.NewPassword != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(update.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("failed to hash new password: %w", err)
		}
		query += ", password_hash = ?"
		args = append(args, string(hashedPassword))
	}
	query += " WHERE id = ?"
	args = append(args, id)

	if _, err := s.db.Exec(query, args...); err != nil {
		if isUniqueViolation(err, "users.email") {
			return models.User{}, ErrEmailExists
		}
		return models.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	s.events.CreateEvent("profile.update", "info", fmt.Sprintf("User %d updated their profile.", id), &id)
	return s.GetUserByID(id)
}

// ListUsers returns every user row without password hashes.
func (s *UserService) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT id, name, email, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns the number of registered users.
func (s *UserService) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
// on the given column. modernc.org/sqlite wraps the message, so match on the
// substring rather than the full error string.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
