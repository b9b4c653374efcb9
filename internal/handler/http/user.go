package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type UserHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	AssignRoles(w http.ResponseWriter, r *http.Request)
	SetEnvironments(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type userHandlerImpl struct {
	userService user.UserService
}

func NewUserHandler(userService user.UserService) UserHandler {
	return &userHandlerImpl{
		userService: userService,
	}
}

// List implements UserHandler.
func (h *userHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results := make([]user.UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, user.NewUserResponse(u))
	}

	response.Success(w, results)
}

// Get implements UserHandler.
func (h *userHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, user.NewUserResponse(u))
}

// AssignRoles implements UserHandler.
func (h *userHandlerImpl) AssignRoles(w http.ResponseWriter, r *http.Request) {
	var req user.AssignRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.UID = chi.URLParam(r, "uid")

	u, err := h.userService.AssignRoles(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Roles updated successfully", user.NewUserResponse(u))
}

// SetEnvironments implements UserHandler.
func (h *userHandlerImpl) SetEnvironments(w http.ResponseWriter, r *http.Request) {
	var req user.SetEnvironmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.UID = chi.URLParam(r, "uid")

	u, err := h.userService.SetEnvironments(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Environments updated successfully", user.NewUserResponse(u))
}

// Delete implements UserHandler.
func (h *userHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	var actorUID string
	if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
		actorUID = identity.UID
	}

	if err := h.userService.Delete(r.Context(), chi.URLParam(r, "uid"), actorUID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "User deleted successfully", nil)
}
