package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var conflict *invitation.ConflictError
	if errors.As(err, &conflict) {
		Conflict(w, conflict.Error())
		return
	}

	var storeErr *invitation.StoreError
	if errors.As(err, &storeErr) {
		InternalServerError(w, storeErr.Error())
		return
	}

	switch {
	// Access errors
	case errors.Is(err, access.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, access.ErrUnauthenticated):
		Unauthorized(w, "Authentication required")
	case errors.Is(err, access.ErrRouteNotAllowed):
		Forbidden(w, "You do not have access to this page")
	case errors.Is(err, access.ErrRoleRequired):
		Forbidden(w, "Required role missing")
	case errors.Is(err, access.ErrEnvironmentNotAllowed):
		Forbidden(w, "Environment not allowed")

	// Invitation domain errors
	case errors.Is(err, invitation.ErrInvitationNotFound):
		NotFound(w, "Invitation not found")
	case errors.Is(err, invitation.ErrInvitationExpired):
		Gone(w, "Invitation has expired")
	case errors.Is(err, invitation.ErrInvitationNotActive):
		Conflict(w, "Invitation is no longer awaiting acceptance")
	case errors.Is(err, invitation.ErrEmailMismatch):
		Forbidden(w, "Your email does not match the invitation email")
	case errors.Is(err, invitation.ErrInvalidStatus):
		BadRequest(w, "Invalid invitation status", nil)
	case errors.Is(err, invitation.ErrDuplicateEmail):
		Conflict(w, "An invitation already exists for this email.")

	// Role domain errors
	case errors.Is(err, role.ErrRoleNotFound):
		NotFound(w, "Role not found")
	case errors.Is(err, role.ErrRoleNameRequired):
		BadRequest(w, "Role name is required", nil)
	case errors.Is(err, role.ErrUnknownRole):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, role.ErrRoleCreateFailed):
		InternalServerError(w, "Failed to create role")
	case errors.Is(err, role.ErrRoleUpdateFailed):
		InternalServerError(w, "Failed to update role")
	case errors.Is(err, role.ErrRoleDeleteFailed):
		InternalServerError(w, "Failed to delete role")

	// User domain errors
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrUIDRequired):
		BadRequest(w, "User ID is required", nil)
	case errors.Is(err, user.ErrCannotDeleteSelf):
		Forbidden(w, "You cannot delete your own account")
	case errors.Is(err, user.ErrUserUpdateFailed):
		InternalServerError(w, "Failed to update user")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
