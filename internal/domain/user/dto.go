package user

import (
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/validator"
)

// UserResponse represents user data in API responses
type UserResponse struct {
	UID                 string            `json:"uid"`
	Email               *string           `json:"email,omitempty"`
	Roles               []string          `json:"roles"`
	AllowedRoutes       role.Routes       `json:"allowed_routes"`
	AllowedEnvironments map[string]string `json:"allowed_environments"`
	CreatedAt           string            `json:"created_at"`
	UpdatedAt           string            `json:"updated_at"`
}

func NewUserResponse(u User) UserResponse {
	resp := UserResponse{
		UID:                 u.UID,
		Email:               u.Email.Ptr(),
		Roles:               u.Roles,
		AllowedRoutes:       u.AllowedRoutes,
		AllowedEnvironments: u.AllowedEnvironments,
		CreatedAt:           u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           u.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if resp.AllowedRoutes == nil {
		resp.AllowedRoutes = role.Routes{}
	}
	if resp.AllowedEnvironments == nil {
		resp.AllowedEnvironments = map[string]string{}
	}
	return resp
}

// AssignRolesRequest - PUT /users/{uid}/roles
type AssignRolesRequest struct {
	UID   string   `json:"-"` // From Chi URL param
	Roles []string `json:"roles"`
}

func (r *AssignRolesRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UID) {
		errs = append(errs, validator.ValidationError{
			Field:   "uid",
			Message: "uid is required",
		})
	}

	if r.Roles == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "roles",
			Message: "roles is required",
		})
	}

	for _, name := range r.Roles {
		if validator.IsEmpty(name) {
			errs = append(errs, validator.ValidationError{
				Field:   "roles",
				Message: "role names must not be empty",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// SetEnvironmentsRequest - PUT /users/{uid}/environments
type SetEnvironmentsRequest struct {
	UID          string            `json:"-"` // From Chi URL param
	Environments map[string]string `json:"environments"`
}

func (r *SetEnvironmentsRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UID) {
		errs = append(errs, validator.ValidationError{
			Field:   "uid",
			Message: "uid is required",
		})
	}

	if r.Environments == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "environments",
			Message: "environments is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
