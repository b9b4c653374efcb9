package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/response"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/go-chi/chi/v5"
)

type InvitationHandler interface {
	// Public endpoint - self-service access request
	RequestAccess(w http.ResponseWriter, r *http.Request)
	// Admin endpoints
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	// Authenticated endpoint - the invitee accepts
	Accept(w http.ResponseWriter, r *http.Request)
}

type invitationHandlerImpl struct {
	invitationService invitation.InvitationService
}

func NewInvitationHandler(invitationService invitation.InvitationService) InvitationHandler {
	return &invitationHandlerImpl{
		invitationService: invitationService,
	}
}

// RequestAccess implements InvitationHandler - public endpoint
func (h *invitationHandlerImpl) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req invitation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.Status = optional.Some(invitation.StatusRequested)
	req.InvitedBy = optional.None[string]()
	req.Expiry = optional.None[time.Time]()
	// grants are decided by an admin on approval
	req.Roles = nil
	req.Environments = nil

	inv, err := h.invitationService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Access request submitted", invitation.NewInvitationResponse(inv, time.Now()))
}

// Create implements InvitationHandler.
func (h *invitationHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req invitation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if !req.InvitedBy.IsSome() {
		if identity := middleware.IdentityFromContext(r.Context()); identity != nil && identity.Email != "" {
			req.InvitedBy = optional.Some(identity.Email)
		}
	}

	inv, err := h.invitationService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Invitation created successfully", invitation.NewInvitationResponse(inv, time.Now()))
}

// List implements InvitationHandler.
func (h *invitationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	var filter invitation.ListFilter
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = optional.Some(invitation.Status(status))
	}

	invitations, err := h.invitationService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	now := time.Now()
	results := make([]invitation.InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		results = append(results, invitation.NewInvitationResponse(inv, now))
	}

	response.Success(w, results)
}

// Get implements InvitationHandler.
func (h *invitationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invitationService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, invitation.NewInvitationResponse(inv, time.Now()))
}

// Update implements InvitationHandler.
func (h *invitationHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req invitation.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	// the acting admin is recorded when the caller leaves performed_by out
	if hist, ok := req.History.Get(); ok && hist.PerformedBy == "" {
		if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
			hist.PerformedBy = identity.UID
			req.History = optional.Some(hist)
		}
	}

	inv, err := h.invitationService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Invitation updated successfully", invitation.NewInvitationResponse(inv, time.Now()))
}

// Delete implements InvitationHandler.
func (h *invitationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.invitationService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Invitation deleted successfully", nil)
}

// Accept implements InvitationHandler.
func (h *invitationHandlerImpl) Accept(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		response.Unauthorized(w, "User ID not found in token")
		return
	}
	if identity.Email == "" {
		response.Unauthorized(w, "Email not found in token")
		return
	}

	u, err := h.invitationService.Accept(r.Context(), invitation.AcceptRequest{
		ID:    chi.URLParam(r, "id"),
		UID:   identity.UID,
		Email: identity.Email,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Invitation accepted successfully", user.NewUserResponse(u))
}
