package errors

import (
	"errors"
)

var (
	ErrEmptyAuth         = errors.New("missing authorization")
	ErrEmptySubject      = errors.New("missing subject")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrForbidden         = errors.New("token subject does not own this resource")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("User already exists")
	ErrPasswordMismatch  = errors.New("invalid username or password")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrFailedHashing     = errors.New("failed hashing password")
)
