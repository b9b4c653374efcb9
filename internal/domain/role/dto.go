package role

import (
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/validator"
)

// CreateRequest - POST /roles
type CreateRequest struct {
	Name        string                 `json:"name"`
	Description optional.Value[string] `json:"description,omitzero"`
	Routes      Routes                 `json:"routes"`
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	}

	errs = append(errs, validateRoutes(r.Routes)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// UpdateRoutesRequest - PUT /roles/{name}/routes
type UpdateRoutesRequest struct {
	Name   string `json:"-"` // From Chi URL param
	Routes Routes `json:"routes"`
}

func (r *UpdateRoutesRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	}

	errs = append(errs, validateRoutes(r.Routes)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func validateRoutes(routes Routes) validator.ValidationErrors {
	var errs validator.ValidationErrors
	for path := range routes {
		if !validator.IsValidRoutePath(path) {
			errs = append(errs, validator.ValidationError{
				Field:   "routes",
				Message: "invalid route path: " + path,
			})
		}
	}
	return errs
}

// RoleResponse represents a role in API responses
type RoleResponse struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Routes      Routes  `json:"routes"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func NewRoleResponse(r Role) RoleResponse {
	routes := r.Routes
	if routes == nil {
		routes = Routes{}
	}
	return RoleResponse{
		Name:        r.Name,
		Description: r.Description.Ptr(),
		Routes:      routes,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}
