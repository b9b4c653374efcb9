package access

import "context"

// AccessService resolves profiles and runs guard checks for an identity
type AccessService interface {
	// Profile returns the caller's access profile; a missing user yields an empty profile
	Profile(ctx context.Context, uid string) (Profile, error)

	Check(ctx context.Context, identity *Identity, guard Guard) (Decision, error)

	// Invalidate drops cached profiles after their user documents changed
	Invalidate(ctx context.Context, uids ...string)
}
