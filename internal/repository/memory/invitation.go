package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/google/uuid"
)

type invitationRepositoryImpl struct {
	store *Store
}

// NewInvitationRepository creates an invitation repository over the store
func NewInvitationRepository(store *Store) invitation.InvitationRepository {
	return &invitationRepositoryImpl{store: store}
}

// findInvitation returns the key of the first document matching fn
func findInvitation(docs map[string][]byte, fn func(inv invitation.Invitation) bool) (string, invitation.Invitation, error) {
	var (
		foundKey string
		found    invitation.Invitation
	)
	err := eachIn(docs, collectionInvitations, func(key string, inv invitation.Invitation) {
		if foundKey == "" && fn(inv) {
			foundKey, found = key, inv
		}
	})
	return foundKey, found, err
}

func (r *invitationRepositoryImpl) find(fn func(inv invitation.Invitation) bool) (string, invitation.Invitation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return findInvitation(r.store.data[collectionInvitations], fn)
}

// Create implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Create(ctx context.Context, inv invitation.Invitation) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	key := id.String()

	err = r.store.write(ctx, func(data collections) error {
		docs := data[collectionInvitations]
		existing, _, err := findInvitation(docs, func(other invitation.Invitation) bool {
			return strings.EqualFold(other.Email, inv.Email)
		})
		if err != nil {
			return err
		}
		if existing != "" {
			return invitation.ErrDuplicateEmail
		}

		raw, err := encode(collectionInvitations, key, inv)
		if err != nil {
			return err
		}
		docs[key] = raw
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// StampID implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) StampID(ctx context.Context, key string) error {
	return r.store.write(ctx, func(data collections) error {
		ok, err := mergeIn(data, collectionInvitations, key, map[string]string{"id": key})
		if err != nil {
			return err
		}
		if !ok {
			return invitation.ErrInvitationNotFound
		}
		return nil
	})
}

// GetByID implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) GetByID(ctx context.Context, id string) (invitation.Invitation, error) {
	key, inv, err := r.find(func(inv invitation.Invitation) bool { return inv.ID == id })
	if err != nil {
		return invitation.Invitation{}, err
	}
	if key == "" {
		return invitation.Invitation{}, invitation.ErrInvitationNotFound
	}
	return inv, nil
}

// GetByEmail implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) GetByEmail(ctx context.Context, email string) (invitation.Invitation, error) {
	key, inv, err := r.find(func(inv invitation.Invitation) bool { return inv.Email == email })
	if err != nil {
		return invitation.Invitation{}, err
	}
	if key == "" {
		return invitation.Invitation{}, invitation.ErrInvitationNotFound
	}
	return inv, nil
}

// List implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) List(ctx context.Context, filter invitation.ListFilter) ([]invitation.Invitation, error) {
	status, filtered := filter.Status.Get()

	invitations := []invitation.Invitation{}
	err := each(r.store, collectionInvitations, func(_ string, inv invitation.Invitation) {
		if filtered && inv.Status != status {
			return
		}
		invitations = append(invitations, inv)
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(invitations, func(a, b invitation.Invitation) int {
		return b.InvitedAt.Compare(a.InvitedAt)
	})
	return invitations, nil
}

// ListOverdue implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) ListOverdue(ctx context.Context, now time.Time) ([]invitation.Invitation, error) {
	overdue := []invitation.Invitation{}
	err := each(r.store, collectionInvitations, func(_ string, inv invitation.Invitation) {
		expiry, ok := inv.Expiry.Get()
		if inv.Status == invitation.StatusInvited && ok && expiry.Before(now) {
			overdue = append(overdue, inv)
		}
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(overdue, func(a, b invitation.Invitation) int {
		ea, _ := a.Expiry.Get()
		eb, _ := b.Expiry.Get()
		return ea.Compare(eb)
	})
	return overdue, nil
}

// Update implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Update(ctx context.Context, id string, patch invitation.Patch, at time.Time, entry optional.Value[invitation.HistoryEntry]) error {
	return r.store.write(ctx, func(data collections) error {
		docs := data[collectionInvitations]

		key, current, err := findInvitation(docs, func(inv invitation.Invitation) bool { return inv.ID == id })
		if err != nil {
			return err
		}
		if key == "" {
			return invitation.ErrInvitationNotFound
		}

		if email, ok := patch.Email.Get(); ok {
			other, _, err := findInvitation(docs, func(inv invitation.Invitation) bool {
				return inv.ID != id && strings.EqualFold(inv.Email, email)
			})
			if err != nil {
				return err
			}
			if other != "" {
				return invitation.ErrDuplicateEmail
			}
		}

		patches := []any{patch, map[string]time.Time{"updatedAt": at}}
		if h, ok := entry.Get(); ok {
			patches = append(patches, map[string][]invitation.HistoryEntry{
				"history": append(slices.Clone(current.History), h),
			})
		}

		_, err = mergeIn(data, collectionInvitations, key, patches...)
		return err
	})
}

// MarkExpired implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) MarkExpired(ctx context.Context, id string, now time.Time, entry invitation.HistoryEntry) (bool, error) {
	var changed bool
	err := r.store.write(ctx, func(data collections) error {
		key, current, err := findInvitation(data[collectionInvitations], func(inv invitation.Invitation) bool { return inv.ID == id })
		if err != nil || key == "" {
			return err
		}

		expiry, ok := current.Expiry.Get()
		if current.Status != invitation.StatusInvited || !ok || !expiry.Before(now) {
			return nil
		}

		changed, err = mergeIn(data, collectionInvitations, key,
			map[string]any{
				"status":    invitation.StatusExpired,
				"updatedAt": now,
				"history":   append(slices.Clone(current.History), entry),
			},
		)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Delete implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.store.write(ctx, func(data collections) error {
		key, _, err := findInvitation(data[collectionInvitations], func(inv invitation.Invitation) bool { return inv.ID == id })
		if err != nil {
			return err
		}
		if key != "" {
			delete(data[collectionInvitations], key)
		}
		return nil
	})
}
