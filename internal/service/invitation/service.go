package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/email"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/validator"
)

const systemActor = "system"

// Config holds the invitation settings the service needs
type Config struct {
	// Expiry applies to invited records created without one
	Expiry time.Duration

	// DashboardURL is the base of the accept link in invitation emails
	DashboardURL string
}

type InvitationServiceImpl struct {
	db             database.Transactor
	invitationRepo invitation.InvitationRepository
	userRepo       user.UserRepository
	roleRepo       role.RoleRepository
	accessService  access.AccessService
	emailService   email.EmailService
	metrics        *metrics.Metrics
	cfg            Config
	now            func() time.Time
}

func NewInvitationService(
	db database.Transactor,
	invitationRepo invitation.InvitationRepository,
	userRepo user.UserRepository,
	roleRepo role.RoleRepository,
	accessService access.AccessService,
	emailService email.EmailService,
	m *metrics.Metrics,
	cfg Config,
) invitation.InvitationService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = invitation.DefaultExpiry
	}
	return &InvitationServiceImpl{
		db:             db,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		roleRepo:       roleRepo,
		accessService:  accessService,
		emailService:   emailService,
		metrics:        m,
		cfg:            cfg,
		now:            time.Now,
	}
}

// storeFailure logs a document store error and wraps it for the caller
func storeFailure(ctx context.Context, msg string, err error, args ...any) error {
	slog.ErrorContext(ctx, msg, append(args, "error", err)...)
	return &invitation.StoreError{Err: err}
}

// Create implements invitation.InvitationService.
func (s *InvitationServiceImpl) Create(ctx context.Context, req invitation.CreateRequest) (invitation.Invitation, error) {
	if err := req.Validate(); err != nil {
		return invitation.Invitation{}, err
	}

	emailAddr := validator.NormalizeEmail(req.Email)

	existing, err := s.invitationRepo.GetByEmail(ctx, emailAddr)
	if err == nil {
		s.metrics.InvitationConflicts.WithLabelValues(string(existing.Status)).Inc()
		return invitation.Invitation{}, &invitation.ConflictError{Existing: existing.Status}
	}
	if !errors.Is(err, invitation.ErrInvitationNotFound) {
		return invitation.Invitation{}, storeFailure(ctx, "failed to look up invitation by email", err, "email", emailAddr)
	}

	now := s.now().UTC()
	status := req.EffectiveStatus()

	inv := invitation.Invitation{
		Email:          emailAddr,
		Status:         status,
		Roles:          req.Roles,
		Environments:   req.Environments,
		InvitedAt:      now,
		InvitedBy:      req.InvitedBy,
		RequestMessage: req.RequestMessage,
		UpdatedAt:      now,
	}
	if inv.Roles == nil {
		inv.Roles = []string{}
	}
	if inv.Environments == nil {
		inv.Environments = map[string]string{}
	}

	switch status {
	case invitation.StatusInvited:
		inv.Expiry = optional.Some(req.Expiry.OrElse(now.Add(s.cfg.Expiry)))
	default:
		// only an open invitation carries a deadline
		inv.Expiry = optional.None[time.Time]()
	}

	action := "User requested access"
	if status != invitation.StatusRequested {
		action = "Invitation created by " + req.InvitedBy.OrElse("admin")
	}
	inv.History = []invitation.HistoryEntry{{
		Timestamp:   now,
		Action:      action,
		PerformedBy: req.InvitedBy.OrElse(systemActor),
	}}

	err = s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		key, err := s.invitationRepo.Create(txCtx, inv)
		if err != nil {
			return err
		}
		if err := s.invitationRepo.StampID(txCtx, key); err != nil {
			return err
		}
		inv.ID = key
		return nil
	})
	if err != nil {
		if errors.Is(err, invitation.ErrDuplicateEmail) {
			// lost a race with a concurrent create for the same email
			if existing, lookupErr := s.invitationRepo.GetByEmail(ctx, emailAddr); lookupErr == nil {
				s.metrics.InvitationConflicts.WithLabelValues(string(existing.Status)).Inc()
				return invitation.Invitation{}, &invitation.ConflictError{Existing: existing.Status}
			}
			return invitation.Invitation{}, err
		}
		return invitation.Invitation{}, storeFailure(ctx, "failed to create invitation", err, "email", emailAddr)
	}

	s.metrics.InvitationsCreated.WithLabelValues(string(status)).Inc()

	if status == invitation.StatusInvited {
		s.sendInvitationEmail(ctx, inv)
	}

	return inv, nil
}

// sendInvitationEmail never fails the create; delivery problems are logged
func (s *InvitationServiceImpl) sendInvitationEmail(ctx context.Context, inv invitation.Invitation) {
	if s.emailService == nil {
		return
	}

	expiry, _ := inv.Expiry.Get()
	err := s.emailService.SendInvitation(email.Invitation{
		To:        inv.Email,
		InvitedBy: inv.InvitedBy.OrElse(""),
		Roles:     inv.Roles,
		AcceptURL: fmt.Sprintf("%s/invitations/%s/accept", s.cfg.DashboardURL, inv.ID),
		ExpiresAt: expiry,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to send invitation email", "invitation_id", inv.ID, "error", err)
	}
}

// Get implements invitation.InvitationService.
func (s *InvitationServiceImpl) Get(ctx context.Context, id string) (invitation.Invitation, error) {
	// keys are always UUIDs; anything else cannot name a stored invitation
	if !validator.IsValidUUID(id) {
		return invitation.Invitation{}, invitation.ErrInvitationNotFound
	}

	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return invitation.Invitation{}, err
		}
		return invitation.Invitation{}, storeFailure(ctx, "failed to get invitation", err, "invitation_id", id)
	}
	return inv, nil
}

// List implements invitation.InvitationService.
func (s *InvitationServiceImpl) List(ctx context.Context, filter invitation.ListFilter) ([]invitation.Invitation, error) {
	if status, ok := filter.Status.Get(); ok && !status.IsValid() {
		return nil, invitation.ErrInvalidStatus
	}

	invitations, err := s.invitationRepo.List(ctx, filter)
	if err != nil {
		return nil, storeFailure(ctx, "failed to list invitations", err)
	}
	return invitations, nil
}

// Update implements invitation.InvitationService.
func (s *InvitationServiceImpl) Update(ctx context.Context, req invitation.UpdateRequest) (invitation.Invitation, error) {
	if err := req.Validate(); err != nil {
		return invitation.Invitation{}, err
	}

	patch := req.Updates
	if e, ok := patch.Email.Get(); ok {
		patch.Email = optional.Some(validator.NormalizeEmail(e))
	}

	now := s.now().UTC()

	entry := optional.None[invitation.HistoryEntry]()
	if h, ok := req.History.Get(); ok {
		performedBy := h.PerformedBy
		if performedBy == "" {
			performedBy = systemActor
		}
		entry = optional.Some(invitation.HistoryEntry{
			Timestamp:   now,
			Action:      h.Action,
			PerformedBy: performedBy,
		})
	}

	var reinvited bool
	err := s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.invitationRepo.GetByID(txCtx, req.ID)
		if err != nil {
			return err
		}

		// approving a request (or reopening a closed record) starts a fresh deadline
		if status, ok := patch.Status.Get(); ok && status == invitation.StatusInvited &&
			current.Status != invitation.StatusInvited && !patch.Expiry.IsSome() {
			patch.Expiry = optional.Some(now.Add(s.cfg.Expiry))
			reinvited = true
		}

		return s.invitationRepo.Update(txCtx, req.ID, patch, now, entry)
	})
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) || errors.Is(err, invitation.ErrDuplicateEmail) {
			return invitation.Invitation{}, err
		}
		return invitation.Invitation{}, storeFailure(ctx, "failed to update invitation", err, "invitation_id", req.ID)
	}

	updated, err := s.Get(ctx, req.ID)
	if err != nil {
		return invitation.Invitation{}, err
	}
	if reinvited {
		s.sendInvitationEmail(ctx, updated)
	}
	return updated, nil
}

// Delete implements invitation.InvitationService.
func (s *InvitationServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.invitationRepo.Delete(ctx, id); err != nil {
		return storeFailure(ctx, "failed to delete invitation", err, "invitation_id", id)
	}
	return nil
}

// Accept implements invitation.InvitationService.
func (s *InvitationServiceImpl) Accept(ctx context.Context, req invitation.AcceptRequest) (user.User, error) {
	if err := req.Validate(); err != nil {
		return user.User{}, err
	}

	now := s.now().UTC()

	var provisioned user.User
	err := s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		inv, err := s.invitationRepo.GetByID(txCtx, req.ID)
		if err != nil {
			return err
		}

		if !strings.EqualFold(inv.Email, validator.NormalizeEmail(req.Email)) {
			return invitation.ErrEmailMismatch
		}
		if !inv.CanBeAccepted(now) {
			if inv.Status != invitation.StatusInvited {
				return invitation.ErrInvitationNotActive
			}
			return invitation.ErrInvitationExpired
		}

		u, err := s.userRepo.GetByUID(txCtx, req.UID)
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			u = user.User{
				UID:                 req.UID,
				Roles:               []string{},
				AllowedEnvironments: map[string]string{},
				CreatedAt:           now,
			}
		case err != nil:
			return err
		}

		u.Email = optional.Some(inv.Email)
		for _, name := range inv.Roles {
			if !slices.Contains(u.Roles, name) {
				u.Roles = append(u.Roles, name)
			}
		}
		if u.AllowedEnvironments == nil {
			u.AllowedEnvironments = map[string]string{}
		}
		for key, name := range inv.Environments {
			u.AllowedEnvironments[key] = name
		}

		routesByRole, err := s.roleRepo.GetRoutes(txCtx, u.Roles)
		if err != nil {
			return err
		}
		u.AllowedRoutes = role.MergeRoutes(u.Roles, routesByRole)
		u.UpdatedAt = now

		if err := s.userRepo.Upsert(txCtx, u); err != nil {
			return err
		}

		entry := invitation.HistoryEntry{Timestamp: now, Action: "Invitation accepted", PerformedBy: req.UID}
		patch := invitation.Patch{Status: optional.Some(invitation.StatusJoined)}
		if err := s.invitationRepo.Update(txCtx, inv.ID, patch, now, optional.Some(entry)); err != nil {
			return err
		}

		provisioned = u
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, invitation.ErrInvitationNotFound),
			errors.Is(err, invitation.ErrEmailMismatch),
			errors.Is(err, invitation.ErrInvitationNotActive),
			errors.Is(err, invitation.ErrInvitationExpired):
			return user.User{}, err
		}
		return user.User{}, storeFailure(ctx, "failed to accept invitation", err, "invitation_id", req.ID, "uid", req.UID)
	}

	s.accessService.Invalidate(ctx, req.UID)
	return provisioned, nil
}

// ExpireOverdue implements invitation.InvitationService.
func (s *InvitationServiceImpl) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()

	overdue, err := s.invitationRepo.ListOverdue(ctx, now)
	if err != nil {
		return 0, storeFailure(ctx, "failed to list overdue invitations", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, inv := range overdue {
		entry := invitation.HistoryEntry{Timestamp: now, Action: "Invitation expired", PerformedBy: systemActor}
		// the record may have been extended or accepted since it was listed
		changed, err := s.invitationRepo.MarkExpired(ctx, inv.ID, now, entry)
		if err != nil {
			slog.ErrorContext(ctx, "failed to expire invitation", "invitation_id", inv.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if changed {
			expired++
		}
	}

	s.metrics.InvitationsExpired.Add(float64(expired))
	return expired, errors.Join(errs...)
}
