package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type RoleHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	UpdateRoutes(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type roleHandlerImpl struct {
	roleService role.RoleService
}

func NewRoleHandler(roleService role.RoleService) RoleHandler {
	return &roleHandlerImpl{
		roleService: roleService,
	}
}

// Create implements RoleHandler.
func (h *roleHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req role.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	created, err := h.roleService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Role saved successfully", role.NewRoleResponse(created))
}

// List implements RoleHandler.
func (h *roleHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results := make([]role.RoleResponse, 0, len(roles))
	for _, rl := range roles {
		results = append(results, role.NewRoleResponse(rl))
	}

	response.Success(w, results)
}

// Get implements RoleHandler.
func (h *roleHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	rl, err := h.roleService.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, role.NewRoleResponse(rl))
}

// UpdateRoutes implements RoleHandler.
func (h *roleHandlerImpl) UpdateRoutes(w http.ResponseWriter, r *http.Request) {
	var req role.UpdateRoutesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.Name = chi.URLParam(r, "name")

	updated, err := h.roleService.UpdateRoutes(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Role updated successfully", role.NewRoleResponse(updated))
}

// Delete implements RoleHandler.
func (h *roleHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.roleService.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Role deleted successfully", nil)
}
