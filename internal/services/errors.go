package services

import "errors"

// Domain errors. Handlers translate these into HTTP responses.
var (
	// ErrEmailExists indicates the email is already taken by another account.
	ErrEmailExists = errors.New("email already in use")

	// ErrInvalidCredentials covers both an unknown email and a wrong password,
	// so login failures never reveal whether the account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the user row is gone despite a valid token.
	ErrUserNotFound = errors.New("user not found")

	// ErrUploadNotFound indicates a staged upload record was not found.
	ErrUploadNotFound = errors.New("upload not found")
)
