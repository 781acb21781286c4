package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

// AdminUserUpdate is an admin edit of someone's account. Passwords cannot
// be changed here.
type AdminUserUpdate struct {
	ProfileFields
	Role *string
}

// AdminService backs the admin dashboard.
type AdminService struct {
	users  repository.UserRepository
	stats  repository.StatsRepository
	logger *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(users repository.UserRepository, stats repository.StatsRepository, logger *slog.Logger) *AdminService {
	return &AdminService{users: users, stats: stats, logger: logger}
}

// ListUsers returns every account, oldest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing users: %w", err)
	}
	return users, nil
}

// Stats returns product, order and user counts.
func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/admin: counting: %w", err)
	}
	return stats, nil
}

// UpdateUser edits the given account.
func (s *AdminService) UpdateUser(ctx context.Context, id string, upd AdminUserUpdate) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/admin: fetching %s: %w", id, err)
	}
	if err := upd.ProfileFields.apply(user); err != nil {
		return nil, err
	}
	if upd.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*upd.Role))
		if role != model.RoleUser && role != model.RoleAdmin {
			return nil, apperror.ValidationFailed("role", "role must be user or admin")
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/admin: updating %s: %w", id, err)
	}
	s.logger.Info("user updated by admin", slog.String("userID", id))
	return user, nil
}

// DeleteUser removes an account and its cart. Orders are kept.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/admin: deleting %s: %w", id, err)
	}
	s.logger.Info("user deleted by admin", slog.String("userID", id))
	return nil
}
