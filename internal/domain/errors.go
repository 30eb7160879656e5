package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")

	// ErrSecretNotFound covers both never-created and already-consumed
	// tokens; callers cannot tell the two apart.
	ErrSecretNotFound  = errors.New("secret not found")
	ErrInvalidPassword = errors.New("invalid password")
)
