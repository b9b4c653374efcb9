package invitation

import (
	"context"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
)

// InvitationService defines the interface for invitation business logic
type InvitationService interface {
	// Create writes a new invitation unless one already exists for the email
	Create(ctx context.Context, req CreateRequest) (Invitation, error)

	Get(ctx context.Context, id string) (Invitation, error)

	List(ctx context.Context, filter ListFilter) ([]Invitation, error)

	// Update merges the present fields and appends the optional history entry
	Update(ctx context.Context, req UpdateRequest) (Invitation, error)

	Delete(ctx context.Context, id string) error

	// Accept provisions the signed-in identity from an invited record and marks it joined
	Accept(ctx context.Context, req AcceptRequest) (user.User, error)

	// ExpireOverdue moves invited records past their expiry to expired
	ExpireOverdue(ctx context.Context) (int, error)
}
