package model

import "errors"

var (
	// User related errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already taken")

	// Token verification errors. The auth flow collapses all of these into a
	// single UNAUTHORIZED signal at the guard boundary; they exist so the
	// cause can still be logged.
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenInvalidClaims = errors.New("token missing required claims")
	ErrWrongTokenType     = errors.New("wrong token type")

	// Refresh token storage errors
	ErrDuplicateToken = errors.New("refresh token already exists")
)
