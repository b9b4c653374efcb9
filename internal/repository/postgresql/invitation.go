package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/jackc/pgx/v5"
)

type invitationRepositoryImpl struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository instance
func NewInvitationRepository(db *database.DB) invitation.InvitationRepository {
	return &invitationRepositoryImpl{db: db}
}

// Create implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Create(ctx context.Context, inv invitation.Invitation) (string, error) {
	q := GetQuerier(ctx, r.db)

	doc, err := marshalDoc(inv)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO invitations (doc) VALUES ($1::jsonb) RETURNING key::text`

	var key string
	if err := q.QueryRow(ctx, query, doc).Scan(&key); err != nil {
		if isUniqueViolation(err) {
			return "", invitation.ErrDuplicateEmail
		}
		return "", fmt.Errorf("failed to create invitation: %w", err)
	}

	return key, nil
}

// StampID implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) StampID(ctx context.Context, key string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invitations
		SET doc = jsonb_set(doc, '{id}', to_jsonb(key::text))
		WHERE key = $1::uuid
		RETURNING key::text
	`

	var stamped string
	err := q.QueryRow(ctx, query, key).Scan(&stamped)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invitation.ErrInvitationNotFound
		}
		return fmt.Errorf("failed to stamp invitation id: %w", err)
	}

	return nil
}

// GetByID implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) GetByID(ctx context.Context, id string) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT doc FROM invitations WHERE doc->>'id' = $1`

	inv, err := scanDoc[invitation.Invitation](q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inv, invitation.ErrInvitationNotFound
		}
		return inv, fmt.Errorf("failed to get invitation by id: %w", err)
	}

	return inv, nil
}

// GetByEmail implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) GetByEmail(ctx context.Context, email string) (invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT doc FROM invitations WHERE doc->>'email' = $1 LIMIT 1`

	inv, err := scanDoc[invitation.Invitation](q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inv, invitation.ErrInvitationNotFound
		}
		return inv, fmt.Errorf("failed to get invitation by email: %w", err)
	}

	return inv, nil
}

// List implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) List(ctx context.Context, filter invitation.ListFilter) ([]invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT doc FROM invitations
		WHERE ($1::text IS NULL OR doc->>'status' = $1)
		ORDER BY (doc->>'invitedAt')::timestamptz DESC
	`

	var status *string
	if s, ok := filter.Status.Get(); ok {
		v := string(s)
		status = &v
	}

	rows, err := q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	return collectDocs[invitation.Invitation](rows)
}

// ListOverdue implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) ListOverdue(ctx context.Context, now time.Time) ([]invitation.Invitation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT doc FROM invitations
		WHERE doc->>'status' = 'invited'
		  AND doc ? 'expiry'
		  AND (doc->>'expiry')::timestamptz < $1
		ORDER BY (doc->>'expiry')::timestamptz
	`

	rows, err := q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue invitations: %w", err)
	}

	return collectDocs[invitation.Invitation](rows)
}

// Update implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Update(ctx context.Context, id string, patch invitation.Patch, at time.Time, entry optional.Value[invitation.HistoryEntry]) error {
	q := GetQuerier(ctx, r.db)

	patchDoc, err := marshalDoc(patch)
	if err != nil {
		return err
	}

	var entryDoc *string
	if h, ok := entry.Get(); ok {
		encoded, err := marshalDoc(h)
		if err != nil {
			return err
		}
		entryDoc = &encoded
	}

	// history is appended to what is stored, never replaced
	query := `
		UPDATE invitations
		SET doc = doc || $2::jsonb || jsonb_build_object('updatedAt', $3::text) || CASE
			WHEN $4::jsonb IS NULL THEN '{}'::jsonb
			ELSE jsonb_build_object('history', COALESCE(doc->'history', '[]'::jsonb) || jsonb_build_array($4::jsonb))
		END
		WHERE doc->>'id' = $1
		RETURNING key::text
	`

	var updated string
	err = q.QueryRow(ctx, query, id, patchDoc, jsonTime(at), entryDoc).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invitation.ErrInvitationNotFound
		}
		if isUniqueViolation(err) {
			return invitation.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	return nil
}

// MarkExpired implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) MarkExpired(ctx context.Context, id string, now time.Time, entry invitation.HistoryEntry) (bool, error) {
	q := GetQuerier(ctx, r.db)

	entryDoc, err := marshalDoc(entry)
	if err != nil {
		return false, err
	}

	// the guard is re-evaluated here so an expiry extended after listing survives
	query := `
		UPDATE invitations
		SET doc = doc || jsonb_build_object(
			'status', 'expired',
			'updatedAt', $2::text,
			'history', COALESCE(doc->'history', '[]'::jsonb) || jsonb_build_array($3::jsonb)
		)
		WHERE doc->>'id' = $1
		  AND doc->>'status' = 'invited'
		  AND doc ? 'expiry'
		  AND (doc->>'expiry')::timestamptz < $4
	`

	tag, err := q.Exec(ctx, query, id, jsonTime(now), entryDoc, now)
	if err != nil {
		return false, fmt.Errorf("failed to expire invitation: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete implements invitation.InvitationRepository.
func (r *invitationRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM invitations WHERE doc->>'id' = $1`, id); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	return nil
}
