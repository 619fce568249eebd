package identity

import "errors"

var (
	ErrIdentityNotFound = errors.New("employee not found in organization")
	ErrAccessDenied     = errors.New("email domain is not allowed")
	ErrInvalidEmail     = errors.New("email is invalid")
	ErrOAuthDisabled    = errors.New("oauth login is not configured")
	ErrInvalidState     = errors.New("oauth state is invalid or expired")
	ErrOAuthExchange    = errors.New("oauth code exchange failed")
)
