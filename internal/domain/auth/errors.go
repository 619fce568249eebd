package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrAdminNotFound      = errors.New("admin credential not found")
	ErrAdminExists        = errors.New("admin credential already exists")
)
