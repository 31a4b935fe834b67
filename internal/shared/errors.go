package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail occurs when an email address is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUnknownRole occurs when a referenced role name does not exist.
	ErrUnknownRole = errors.New("unknown role")
	// ErrTokenMissing occurs when a request carries no bearer token.
	ErrTokenMissing = errors.New("auth token missing")
	// ErrTokenInvalid occurs when a bearer token does not resolve to a principal.
	ErrTokenInvalid = errors.New("auth token invalid")
)
