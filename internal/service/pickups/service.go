// Package pickups schedules waste pickups and awards points when they are completed.
package pickups

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/catalog"
	prommetrics "github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// MaxItemQuantity is the largest quantity one item line can carry; it matches the
// numeric(12,3) column.
var MaxItemQuantity = decimal.RequireFromString("999999999.999")

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// Service handles pickup scheduling and completion.
type Service struct {
	db       *repository.DB
	ledger   *ledger.Service
	notifier notify.Dispatcher
	log      *logger.Logger
}

// NewService creates a new pickup service.
func NewService(db *repository.DB, ledgerSvc *ledger.Service, notifier notify.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		ledger:   ledgerSvc,
		notifier: notifier,
		log:      log.Component("pickups"),
	}
}

// ItemInput is one line of a pickup request.
type ItemInput struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateRequest holds the data needed to schedule a pickup.
type CreateRequest struct {
	UserID       uint        `json:"user_id"`
	Address      string      `json:"address"`
	ScheduledFor time.Time   `json:"scheduled_for"`
	Items        []ItemInput `json:"items"`
}

// CreatePickup schedules a pickup. Each item's category is resolved through the catalog
// here and stored on the item row.
func (s *Service) CreatePickup(ctx context.Context, req CreateRequest) (*models.Pickup, error) {
	if req.UserID == 0 {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", apperrors.ErrInvalidInput)
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("%w: item name is required", apperrors.ErrInvalidInput)
		}
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: %s must be positive", apperrors.ErrInvalidQuantity, item.Name)
		}
		if item.Quantity.GreaterThan(MaxItemQuantity) {
			return nil, fmt.Errorf("%w: %s exceeds %s", apperrors.ErrInvalidQuantity, item.Name, MaxItemQuantity)
		}
	}

	pickup := &models.Pickup{
		UserID:       req.UserID,
		Address:      req.Address,
		Status:       models.PickupStatusScheduled,
		ScheduledFor: req.ScheduledFor,
	}

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		exists, err := repository.NewUserRepository(tx).Exists(req.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}

		resolver := catalog.NewResolver(repository.NewCatalogRepository(tx))
		for _, item := range req.Items {
			category, err := resolver.Resolve(item.Name)
			if err != nil {
				return err
			}
			pickup.Items = append(pickup.Items, models.PickupItem{
				ItemName: strings.TrimSpace(item.Name),
				Category: category,
				Quantity: item.Quantity,
			})
		}

		return repository.NewPickupRepository(tx).Create(pickup)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("pickup_id", pickup.ID).
		Uint("user_id", pickup.UserID).
		Int("items", len(pickup.Items)).
		Msg("Pickup scheduled")

	return pickup, nil
}

// Result describes the outcome of a status update.
type Result struct {
	Pickup        *models.Pickup
	Changed       bool
	PointsAwarded int64
}

// UpdateStatus moves a pickup to status. Completing a pickup grants points for its
// recyclable and organic items when automatic grants are enabled. Setting the current
// status again is a no-op; completed and cancelled pickups cannot change.
func (s *Service) UpdateStatus(ctx context.Context, pickupID uint, status string) (*Result, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, status)
	}

	var (
		result   = &Result{}
		movement *ledger.Movement
	)

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		pickups := repository.NewPickupRepository(tx)

		pickup, err := pickups.LockByID(pickupID)
		if err != nil {
			return err
		}
		result.Pickup = pickup

		if pickup.Status == status {
			return nil
		}
		if isTerminal(pickup.Status) || status == models.PickupStatusScheduled {
			return &apperrors.TransitionError{Entity: "pickup", From: pickup.Status, To: status}
		}

		pickup.Status = status
		result.Changed = true

		if status == models.PickupStatusCompleted {
			now := time.Now().UTC()
			pickup.CompletedAt = &now

			settings, err := repository.NewSettingsRepository(tx).Get()
			if err != nil {
				return err
			}

			if settings.AutoGrantEnabled {
				points, err := ComputePoints(pickup.Items, settings)
				if err != nil {
					return err
				}
				if points > 0 {
					movement, err = s.ledger.Grant(ctx, tx, ledger.Entry{
						UserID:     pickup.UserID,
						Points:     points,
						Reason:     fmt.Sprintf("Pickup #%d completed", pickup.ID),
						SourceType: models.SourcePickup,
						SourceID:   ledger.SourceRef(pickup.ID),
					})
					if err != nil {
						return err
					}
					pickup.PointsAwarded = points
					result.PointsAwarded = points
				}
			}
		}

		return pickups.UpdateCompletion(pickup)
	})
	if err != nil {
		if !apperrors.IsPrecondition(err) && !apperrors.IsNotFound(err) {
			s.log.Error().Err(err).Uint("pickup_id", pickupID).Str("status", status).Msg("Failed to update pickup status")
		}
		return nil, err
	}

	if !result.Changed {
		s.log.Debug().Uint("pickup_id", pickupID).Str("status", status).Msg("Pickup already in requested status")
		return result, nil
	}

	s.ledger.Committed(movement)
	prommetrics.RecordStatusTransition("pickup", status)
	s.log.Info().
		Uint("pickup_id", pickupID).
		Str("status", status).
		Int64("points", result.PointsAwarded).
		Msg("Pickup status updated")

	if status == models.PickupStatusCompleted {
		content := fmt.Sprintf("Your pickup #%d has been collected.", pickupID)
		if result.PointsAwarded > 0 {
			content = fmt.Sprintf("Your pickup #%d has been collected. +%d points", pickupID, result.PointsAwarded)
		}
		notify.Send(ctx, s.notifier, s.log, result.Pickup.UserID, "Pickup completed", content)
	}

	return result, nil
}

// GetPickup returns a pickup with its items.
func (s *Service) GetPickup(_ context.Context, pickupID uint) (*models.Pickup, error) {
	return repository.NewPickupRepository(s.db).GetByID(pickupID)
}

// ListUserPickups returns a user's pickups, newest first.
func (s *Service) ListUserPickups(_ context.Context, userID uint) ([]models.Pickup, error) {
	exists, err := repository.NewUserRepository(s.db).Exists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrUserNotFound
	}
	return repository.NewPickupRepository(s.db).ListByUser(userID)
}

// ComputePoints returns floor(Σ quantity × rate) over the items, where the rate comes
// from the item's category. General waste earns nothing. A total that does not fit a
// balance fails with apperrors.ErrPointsOverflow.
func ComputePoints(items []models.PickupItem, settings *models.PointSettings) (int64, error) {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Quantity.Mul(settings.RateFor(item.Category)))
	}
	if !total.IsPositive() {
		return 0, nil
	}
	total = total.Floor()
	if total.GreaterThan(maxPoints) {
		return 0, fmt.Errorf("%w: pickup earns %s points", apperrors.ErrPointsOverflow, total)
	}
	return total.IntPart(), nil
}

func validStatus(status string) bool {
	switch status {
	case models.PickupStatusScheduled, models.PickupStatusCompleted, models.PickupStatusCancelled:
		return true
	}
	return false
}

func isTerminal(status string) bool {
	return status == models.PickupStatusCompleted || status == models.PickupStatusCancelled
}
