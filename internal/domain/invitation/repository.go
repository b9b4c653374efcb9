package invitation

import (
	"context"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
)

// ListFilter narrows List; an absent status lists everything
type ListFilter struct {
	Status optional.Value[Status]
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	// Create inserts the document under a generated key and returns the key
	Create(ctx context.Context, inv Invitation) (string, error)

	// StampID writes the document key into the document's own id field
	StampID(ctx context.Context, key string) error

	GetByID(ctx context.Context, id string) (Invitation, error)

	// GetByEmail returns the single invitation stored for email
	GetByEmail(ctx context.Context, email string) (Invitation, error)

	// List returns invitations newest first
	List(ctx context.Context, filter ListFilter) ([]Invitation, error)

	// ListOverdue returns invited records whose expiry is before now
	ListOverdue(ctx context.Context, now time.Time) ([]Invitation, error)

	// Update merges patch, stamps updatedAt and appends entry to history when present
	Update(ctx context.Context, id string, patch Patch, at time.Time, entry optional.Value[HistoryEntry]) error

	// MarkExpired moves the record to expired and appends entry, but only while it
	// is still invited with an expiry before now. It reports whether it changed.
	MarkExpired(ctx context.Context, id string, now time.Time, entry HistoryEntry) (bool, error)

	// Delete removes the document; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error
}
