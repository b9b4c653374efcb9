package invitation

import (
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
)

// Status represents the lifecycle state of an invitation
type Status string

const (
	StatusInvited   Status = "invited"
	StatusJoined    Status = "joined"
	StatusRequested Status = "requested"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusDeleted   Status = "deleted"
)

// Statuses lists every status in declaration order
var Statuses = []Status{
	StatusInvited,
	StatusJoined,
	StatusRequested,
	StatusRejected,
	StatusExpired,
	StatusDeleted,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusInvited, StatusJoined, StatusRequested, StatusRejected, StatusExpired, StatusDeleted:
		return true
	default:
		return false
	}
}

// DefaultExpiry applies when an invited record is created without one
const DefaultExpiry = 72 * time.Hour

// HistoryEntry is one audit record; history is append-only
type HistoryEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
}

// Invitation represents a prospective user's path to dashboard access.
// ID is the store key stamped back onto the document after insert.
type Invitation struct {
	ID             string                    `json:"id,omitempty"`
	Email          string                    `json:"email"`
	Status         Status                    `json:"status"`
	Roles          []string                  `json:"roles"`
	Environments   map[string]string         `json:"environments"`
	InvitedAt      time.Time                 `json:"invitedAt"`
	Expiry         optional.Value[time.Time] `json:"expiry,omitzero"`
	InvitedBy      optional.Value[string]    `json:"invitedBy,omitzero"`
	RequestMessage optional.Value[string]    `json:"requestMessage,omitzero"`
	History        []HistoryEntry            `json:"history"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// IsExpired reports whether an expiry is set and has passed
func (i *Invitation) IsExpired(now time.Time) bool {
	expiry, ok := i.Expiry.Get()
	return ok && now.After(expiry)
}

// CanBeAccepted checks if the invitation can be turned into an account
func (i *Invitation) CanBeAccepted(now time.Time) bool {
	return i.Status == StatusInvited && !i.IsExpired(now)
}

// Patch is a partial update. Only present fields are applied.
type Patch struct {
	Email          optional.Value[string]            `json:"email,omitzero"`
	Status         optional.Value[Status]            `json:"status,omitzero"`
	Roles          optional.Value[[]string]          `json:"roles,omitzero"`
	Environments   optional.Value[map[string]string] `json:"environments,omitzero"`
	Expiry         optional.Value[time.Time]         `json:"expiry,omitzero"`
	InvitedBy      optional.Value[string]            `json:"invitedBy,omitzero"`
	RequestMessage optional.Value[string]            `json:"requestMessage,omitzero"`
}
