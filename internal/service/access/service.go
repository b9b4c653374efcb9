package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/cache"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/metrics"
)

type AccessServiceImpl struct {
	userRepo  user.UserRepository
	cache     cache.AccessCache
	evaluator access.Evaluator
	metrics   *metrics.Metrics
}

func NewAccessService(
	userRepo user.UserRepository,
	accessCache cache.AccessCache,
	evaluator access.Evaluator,
	m *metrics.Metrics,
) access.AccessService {
	return &AccessServiceImpl{
		userRepo:  userRepo,
		cache:     accessCache,
		evaluator: evaluator,
		metrics:   m,
	}
}

// Profile implements access.AccessService.
func (s *AccessServiceImpl) Profile(ctx context.Context, uid string) (access.Profile, error) {
	cached, ok, err := s.cache.Get(ctx, uid)
	if err != nil {
		slog.WarnContext(ctx, "access cache read failed", "uid", uid, "error", err)
	}
	s.metrics.RecordCacheLookup(ok)
	if ok {
		return cached, nil
	}

	// read before the document so an invalidation during the load wins
	generation, genErr := s.cache.Generation(ctx, uid)
	if genErr != nil {
		slog.WarnContext(ctx, "access cache generation read failed", "uid", uid, "error", genErr)
	}

	u, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			// signed in but never provisioned
			return access.ProfileFromUser(user.User{UID: uid}), nil
		}
		return access.Profile{}, fmt.Errorf("failed to load access profile: %w", err)
	}

	profile := access.ProfileFromUser(u)
	if genErr == nil {
		if err := s.cache.Set(ctx, profile, generation); err != nil && !errors.Is(err, cache.ErrStaleProfile) {
			slog.WarnContext(ctx, "access cache write failed", "uid", uid, "error", err)
		}
	}

	return profile, nil
}

// Check implements access.AccessService.
func (s *AccessServiceImpl) Check(ctx context.Context, identity *access.Identity, guard access.Guard) (access.Decision, error) {
	profile := access.Profile{AllowedRoutes: role.Routes{}}
	if identity != nil && identity.UID != "" {
		p, err := s.Profile(ctx, identity.UID)
		if err != nil {
			return access.Decision{}, err
		}
		profile = p
	}

	decision := s.evaluator.Check(identity, profile, guard)
	s.metrics.AccessDecisions.WithLabelValues(string(decision.State), string(decision.Reason)).Inc()

	return decision, nil
}

// Invalidate implements access.AccessService.
func (s *AccessServiceImpl) Invalidate(ctx context.Context, uids ...string) {
	if err := s.cache.Invalidate(ctx, uids...); err != nil {
		slog.ErrorContext(ctx, "access cache invalidation failed", "uids", uids, "error", err)
	}
}
