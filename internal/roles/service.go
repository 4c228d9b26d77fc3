package roles

import (
	"context"
	"errors"
	"fmt"

	"cartshare/internal/domain"
	"cartshare/internal/identity"
	"cartshare/internal/repository"
	"cartshare/pkg/logger"
)

// ErrForbidden is returned when the acting user lacks the admin role.
var ErrForbidden = errors.New("admin role required")

// Service manages user profiles and roles: the default pending role written
// on first sign-in, admin-driven role updates, and the share-candidate
// listing backing the cart sharing picker.
type Service struct {
	repo   repository.RoleRepository
	claims identity.ClaimWriter
	logg   *logger.Logger
}

func NewService(repo repository.RoleRepository, claims identity.ClaimWriter, logg *logger.Logger) *Service {
	return &Service{repo: repo, claims: claims, logg: logg}
}

// EnsureUser records the user and a default pending role the first time a
// uid is seen. Known users pass through untouched.
func (s *Service) EnsureUser(ctx context.Context, user identity.User) error {
	created, err := s.repo.EnsureUser(ctx, domain.User{
		ID:    user.UID,
		Name:  user.Name,
		Email: user.Email,
	})
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", user.UID, err)
	}
	if created {
		s.logg.Info(s.logg.WithUserID(ctx, user.UID), "registered new user with pending role")
	}
	return nil
}

// UpdateRole sets a user's role. The actor must hold the admin role. The
// role is written to the userRoles document and mirrored into the identity
// provider's custom claims.
func (s *Service) UpdateRole(ctx context.Context, actor identity.User, userID, role string) error {
	if actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if !domain.ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	if err := s.claims.SetRoleClaim(ctx, userID, role); err != nil {
		return fmt.Errorf("set role claim for %s: %w", userID, err)
	}
	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return fmt.Errorf("set role for %s: %w", userID, err)
	}
	return nil
}

// ShareCandidates lists users that can be offered cart membership, the
// requesting user excluded.
func (s *Service) ShareCandidates(ctx context.Context, requesterID string) ([]domain.UserRole, error) {
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list share candidates: %w", err)
	}

	out := members[:0]
	for _, m := range members {
		if m.UserID == requesterID {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
