// Package badges manages the badge register: granting, revoking and listing badges.
package badges

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecohood/points-ledger/internal/apperrors"
	prommetrics "github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	Create(badge *models.Badge) error
	GetAll() ([]models.Badge, error)
	GetByID(id uint) (*models.Badge, error)
	GetByName(name string) (*models.Badge, error)
	AwardBadge(userID, badgeID uint, grantedBy *uint) (*models.UserBadge, error)
	RevokeUserBadge(userID, badgeID uint) (bool, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
	GetBadgeHoldersCount(badgeID uint) (int64, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	Exists(id uint) (bool, error)
}

// Service handles badge grants and revocations.
type Service struct {
	badgeRepo BadgeRepository
	userRepo  UserRepository
	notifier  notify.Dispatcher
	log       *logger.Logger
}

// NewService creates a new badge service.
func NewService(
	badgeRepo *repository.BadgeRepository,
	userRepo *repository.UserRepository,
	notifier notify.Dispatcher,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(badgeRepo, userRepo, notifier, log)
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	userRepo UserRepository,
	notifier notify.Dispatcher,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo: badgeRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		log:       log.Component("badges"),
	}
}

// CreateBadge adds a badge to the catalog. Badge names are unique.
func (s *Service) CreateBadge(_ context.Context, badge *models.Badge) error {
	badge.Name = strings.TrimSpace(badge.Name)
	if badge.Name == "" {
		return fmt.Errorf("%w: badge name is required", apperrors.ErrInvalidInput)
	}

	_, err := s.badgeRepo.GetByName(badge.Name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q", apperrors.ErrBadgeNameTaken, badge.Name)
	case !errors.Is(err, apperrors.ErrBadgeNotFound):
		return fmt.Errorf("failed to look up badge %q: %w", badge.Name, err)
	}

	if err := s.badgeRepo.Create(badge); err != nil {
		return fmt.Errorf("failed to create badge: %w", err)
	}
	return nil
}

// GrantBadge gives a badge to a user. A user holds each badge at most once; a second
// grant fails with apperrors.ErrBadgeAlreadyGranted.
func (s *Service) GrantBadge(ctx context.Context, userID, badgeID uint, grantedBy *uint) (*models.UserBadge, error) {
	if err := s.ensureUser(userID); err != nil {
		return nil, err
	}

	badge, err := s.badgeRepo.GetByID(badgeID)
	if err != nil {
		return nil, err
	}

	userBadge, err := s.badgeRepo.AwardBadge(userID, badgeID, grantedBy)
	if err != nil {
		if errors.Is(err, apperrors.ErrBadgeAlreadyGranted) {
			return nil, err
		}
		s.log.Error().
			Err(err).
			Uint("user_id", userID).
			Uint("badge_id", badgeID).
			Msg("Failed to grant badge")
		return nil, fmt.Errorf("failed to grant badge: %w", err)
	}
	userBadge.Badge = *badge

	prommetrics.RecordBadgeGranted(badge.Name)
	s.log.Info().
		Uint("user_id", userID).
		Str("badge", badge.Name).
		Msg("Badge granted")

	notify.Send(ctx, s.notifier, s.log, userID,
		"New badge earned",
		fmt.Sprintf("You earned the %q badge.", badge.Name))

	return userBadge, nil
}

// RevokeBadge removes a badge from a user. Revoking a badge the user does not hold succeeds.
func (s *Service) RevokeBadge(_ context.Context, userID, badgeID uint) error {
	badge, err := s.badgeRepo.GetByID(badgeID)
	if err != nil {
		return err
	}

	removed, err := s.badgeRepo.RevokeUserBadge(userID, badgeID)
	if err != nil {
		return fmt.Errorf("failed to revoke badge: %w", err)
	}

	if removed {
		prommetrics.RecordBadgeRevoked(badge.Name)
		s.log.Info().
			Uint("user_id", userID).
			Str("badge", badge.Name).
			Msg("Badge revoked")
	}
	return nil
}

// GetUserBadges retrieves all badges held by a user.
func (s *Service) GetUserBadges(_ context.Context, userID uint) ([]models.UserBadge, error) {
	if err := s.ensureUser(userID); err != nil {
		return nil, err
	}
	return s.badgeRepo.GetUserBadges(userID)
}

// GetBadgeCatalog retrieves all available badges.
func (s *Service) GetBadgeCatalog(_ context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll()
}

// GetBadgeHoldersCount retrieves the count of users holding a badge.
func (s *Service) GetBadgeHoldersCount(_ context.Context, badgeID uint) (int64, error) {
	if _, err := s.badgeRepo.GetByID(badgeID); err != nil {
		return 0, err
	}
	return s.badgeRepo.GetBadgeHoldersCount(badgeID)
}

func (s *Service) ensureUser(userID uint) error {
	exists, err := s.userRepo.Exists(userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrUserNotFound
	}
	return nil
}
