package user

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUIDRequired       = errors.New("uid is required")
	ErrUserUpdateFailed  = errors.New("failed to update user")
	ErrCannotDeleteSelf  = errors.New("cannot delete your own account")
	ErrEnvironmentDenied = errors.New("environment not allowed")
)
