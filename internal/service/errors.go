package service

import "errors"

var (
	ErrEmptyCredential = errors.New("empty credential(s)")
	ErrPasswordLength  = errors.New("password too short")
	ErrEmptyMessage    = errors.New("empty message")
	ErrEmptyPassword   = errors.New("empty password")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
