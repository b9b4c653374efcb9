package invitation

import (
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/validator"
)

// CreateRequest - POST /invitations (admin) and POST /access-requests (self-service)
type CreateRequest struct {
	Email          string                    `json:"email"`
	Roles          []string                  `json:"roles"`
	Environments   map[string]string         `json:"environments"`
	InvitedBy      optional.Value[string]    `json:"invited_by,omitzero"`
	Expiry         optional.Value[time.Time] `json:"expiry,omitzero"`
	Status         optional.Value[Status]    `json:"status,omitzero"`
	RequestMessage optional.Value[string]    `json:"request_message,omitzero"`
}

// EffectiveStatus is the requested status, invited when unspecified
func (r *CreateRequest) EffectiveStatus() Status {
	return r.Status.OrElse(StatusInvited)
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email format is invalid",
		})
	}

	if s, ok := r.Status.Get(); ok && !s.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status is invalid",
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

// HistoryInput is the caller-supplied part of a history entry
type HistoryInput struct {
	Action      string `json:"action"`
	PerformedBy string `json:"performed_by"`
}

// UpdateRequest - PATCH /invitations/{id}
type UpdateRequest struct {
	ID      string                       `json:"-"` // From Chi URL param
	Updates Patch                        `json:"updates"`
	History optional.Value[HistoryInput] `json:"history,omitzero"`
}

func (r *UpdateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if s, ok := r.Updates.Status.Get(); ok && !s.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "updates.status",
			Message: "status is invalid",
		})
	}

	if email, ok := r.Updates.Email.Get(); ok && !validator.IsValidEmail(email) {
		errs = append(errs, validator.ValidationError{
			Field:   "updates.email",
			Message: "email format is invalid",
		})
	}

	if h, ok := r.History.Get(); ok && validator.IsEmpty(h.Action) {
		errs = append(errs, validator.ValidationError{
			Field:   "history.action",
			Message: "action is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// AcceptRequest for accepting an invitation
type AcceptRequest struct {
	ID    string // From Chi URL param
	UID   string // From JWT - not from request body
	Email string // From JWT
}

func (r *AcceptRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if validator.IsEmpty(r.UID) {
		errs = append(errs, validator.ValidationError{
			Field:   "uid",
			Message: "uid is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// HistoryResponse is a display-formatted history entry
type HistoryResponse struct {
	Timestamp   string `json:"timestamp"`
	Action      string `json:"action"`
	PerformedBy string `json:"performed_by"`
}

// InvitationResponse - GET /invitations, GET /invitations/{id}
type InvitationResponse struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	Status         string            `json:"status"`
	Roles          []string          `json:"roles"`
	Environments   map[string]string `json:"environments"`
	InvitedAt      string            `json:"invited_at"`
	Expiry         *string           `json:"expiry,omitempty"`
	IsExpired      bool              `json:"is_expired"`
	InvitedBy      *string           `json:"invited_by,omitempty"`
	RequestMessage *string           `json:"request_message,omitempty"`
	History        []HistoryResponse `json:"history"`
	UpdatedAt      string            `json:"updated_at"`
}

// NewInvitationResponse formats timestamps for display
func NewInvitationResponse(inv Invitation, now time.Time) InvitationResponse {
	resp := InvitationResponse{
		ID:             inv.ID,
		Email:          inv.Email,
		Status:         string(inv.Status),
		Roles:          inv.Roles,
		Environments:   inv.Environments,
		InvitedAt:      inv.InvitedAt.Format(time.RFC3339),
		IsExpired:      inv.IsExpired(now),
		InvitedBy:      inv.InvitedBy.Ptr(),
		RequestMessage: inv.RequestMessage.Ptr(),
		History:        make([]HistoryResponse, 0, len(inv.History)),
		UpdatedAt:      inv.UpdatedAt.Format(time.RFC3339),
	}
	if expiry, ok := inv.Expiry.Get(); ok {
		formatted := expiry.Format(time.RFC3339)
		resp.Expiry = &formatted
	}
	for _, h := range inv.History {
		resp.History = append(resp.History, HistoryResponse{
			Timestamp:   h.Timestamp.Format(time.RFC3339),
			Action:      h.Action,
			PerformedBy: h.PerformedBy,
		})
	}
	return resp
}
