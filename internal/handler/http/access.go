package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/response"
)

type AccessHandler interface {
	// Me returns the caller's access profile for client-side guards
	Me(w http.ResponseWriter, r *http.Request)
	// Check evaluates a page guard for the caller
	Check(w http.ResponseWriter, r *http.Request)
}

type accessHandlerImpl struct {
	accessService access.AccessService
}

func NewAccessHandler(accessService access.AccessService) AccessHandler {
	return &accessHandlerImpl{
		accessService: accessService,
	}
}

// Me implements AccessHandler.
func (h *accessHandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		response.HandleError(w, access.ErrUnauthenticated)
		return
	}

	profile, err := h.accessService.Profile(r.Context(), identity.UID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, profile)
}

// Check implements AccessHandler.
func (h *accessHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	var guard access.Guard
	if err := json.NewDecoder(r.Body).Decode(&guard); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	decision, err := h.accessService.Check(r.Context(), middleware.IdentityFromContext(r.Context()), guard)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, decision)
}
