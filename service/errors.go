package service

import "errors"

var (
	// ErrInvalidUsername is returned when a username is empty, too long or contains whitespace.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrUsernameTaken is returned when registering a username that already exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound is returned when a session is missing or expired.
	ErrSessionNotFound = errors.New("session not found")
)
