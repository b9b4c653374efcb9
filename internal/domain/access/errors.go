package access

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrRouteNotAllowed       = errors.New("route not allowed")
	ErrRoleRequired          = errors.New("required role missing")
	ErrEnvironmentNotAllowed = errors.New("environment not allowed")
)
