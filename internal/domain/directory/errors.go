package directory

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmptyDirectory   = errors.New("employee set must not be empty")
	ErrDuplicateEmail   = errors.New("email is used by more than one employee")
)
