package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
)

type InvitationJobs struct {
	invitationService invitation.InvitationService
	schedule          string
}

func NewInvitationJobs(invitationService invitation.InvitationService, schedule string) *InvitationJobs {
	return &InvitationJobs{
		invitationService: invitationService,
		schedule:          schedule,
	}
}

func (j *InvitationJobs) RegisterJobs(scheduler *Scheduler) error {
	return scheduler.AddJob("expire_invitations", j.schedule, j.ExpireInvitations)
}

func (j *InvitationJobs) ExpireInvitations(ctx context.Context) error {
	expired, err := j.invitationService.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire invitations: %w", err)
	}

	if expired > 0 {
		slog.Info("Cron: Expired overdue invitations", "count", expired)
	}
	return nil
}
