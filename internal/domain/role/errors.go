package role

import "errors"

var (
	ErrRoleNotFound     = errors.New("role not found")
	ErrRoleNameRequired = errors.New("role name is required")
	ErrUnknownRole      = errors.New("unknown role")
	ErrRoleCreateFailed = errors.New("failed to create role")
	ErrRoleUpdateFailed = errors.New("failed to update role")
	ErrRoleDeleteFailed = errors.New("failed to delete role")
)
