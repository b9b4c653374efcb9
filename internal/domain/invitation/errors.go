package invitation

import "errors"

var (
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrInvitationExpired   = errors.New("invitation has expired")
	ErrInvitationNotActive = errors.New("invitation is not awaiting acceptance")
	ErrEmailMismatch       = errors.New("your email does not match the invitation email")
	ErrInvalidStatus       = errors.New("invalid invitation status")
	ErrDuplicateEmail      = errors.New("an invitation already exists for this email")
)

// ConflictMessage maps the status of an existing invitation to the message
// shown when another one is requested for the same email.
func ConflictMessage(s Status) string {
	switch s {
	case StatusInvited:
		return "You already have an active invitation."
	case StatusJoined:
		return "You have already joined the platform. But your account might be deleted"
	case StatusRequested:
		return "Your request is pending approval."
	case StatusRejected:
		return "Your previous request was rejected."
	case StatusExpired:
		return "Your previous invitation has expired."
	case StatusDeleted:
		return "Your account was deleted."
	default:
		return "An invitation already exists for this email."
	}
}

// ConflictError is returned when an invitation already exists for an email
type ConflictError struct {
	Existing Status
}

func (e *ConflictError) Error() string {
	return ConflictMessage(e.Existing)
}

// StoreError wraps a document store failure. Its message is surfaced to the
// caller as-is.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return "An unexpected error occurred"
	}
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
