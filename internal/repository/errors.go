package repository

import "errors"

// Sentinels wrapped by every store implementation. Callers match them with errors.Is.
var (
	// ErrNotFound covers missing rows and soft-deleted users
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail means another live user already holds the email
	ErrDuplicateEmail = errors.New("email already registered")

	ErrDuplicateToken = errors.New("refresh token hash already stored")
)
