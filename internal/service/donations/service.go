// Package donations reviews donated items and awards points on approval.
package donations

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecohood/points-ledger/internal/apperrors"
	prommetrics "github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/pkg/logger"
)

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// Service handles donation intake and review.
type Service struct {
	db       *repository.DB
	ledger   *ledger.Service
	notifier notify.Dispatcher
	log      *logger.Logger
}

// NewService creates a new donation service.
func NewService(db *repository.DB, ledgerSvc *ledger.Service, notifier notify.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		ledger:   ledgerSvc,
		notifier: notifier,
		log:      log.Component("donations"),
	}
}

// CreateRequest holds the data of a new donation.
type CreateRequest struct {
	UserID      uint   `json:"user_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// CreateDonation records a pending donation.
func (s *Service) CreateDonation(_ context.Context, req CreateRequest) (*models.Donation, error) {
	if req.UserID == 0 {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	if req.Quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	exists, err := repository.NewUserRepository(s.db).Exists(req.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrUserNotFound
	}

	donation := &models.Donation{
		UserID:      req.UserID,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		Status:      models.DonationStatusPending,
	}
	if err := repository.NewDonationRepository(s.db).Create(donation); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("donation_id", donation.ID).
		Uint("user_id", donation.UserID).
		Int("quantity", donation.Quantity).
		Msg("Donation registered")

	return donation, nil
}

// Result describes the outcome of a status update.
type Result struct {
	Donation      *models.Donation
	Changed       bool
	PointsAwarded int64
}

// UpdateStatus sets a donation's status. The first transition into approved grants
// floor(quantity × donationPerPiece) points when automatic grants are enabled; a donation
// is awarded at most once, even if it is approved again later.
func (s *Service) UpdateStatus(ctx context.Context, donationID uint, status string) (*Result, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, status)
	}

	var (
		result   = &Result{}
		movement *ledger.Movement
	)

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		donations := repository.NewDonationRepository(tx)

		donation, err := donations.LockByID(donationID)
		if err != nil {
			return err
		}
		result.Donation = donation

		if donation.Status == status {
			return nil
		}
		donation.Status = status
		result.Changed = true

		if status == models.DonationStatusApproved && donation.AwardedAt == nil {
			settings, err := repository.NewSettingsRepository(tx).Get()
			if err != nil {
				return err
			}

			points, err := ComputePoints(donation.Quantity, settings)
			if err != nil {
				return err
			}
			if settings.AutoGrantEnabled && points > 0 {
				movement, err = s.ledger.Grant(ctx, tx, ledger.Entry{
					UserID:     donation.UserID,
					Points:     points,
					Reason:     fmt.Sprintf("Donation #%d approved", donation.ID),
					SourceType: models.SourceDonation,
					SourceID:   ledger.SourceRef(donation.ID),
				})
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				donation.AwardedAt = &now
				donation.PointsAwarded = points
				result.PointsAwarded = points
			}
		}

		return donations.UpdateReview(donation)
	})
	if err != nil {
		if !apperrors.IsPrecondition(err) && !apperrors.IsNotFound(err) {
			s.log.Error().Err(err).Uint("donation_id", donationID).Str("status", status).Msg("Failed to update donation status")
		}
		return nil, err
	}

	if !result.Changed {
		return result, nil
	}

	s.ledger.Committed(movement)
	prommetrics.RecordStatusTransition("donation", status)
	s.log.Info().
		Uint("donation_id", donationID).
		Str("status", status).
		Int64("points", result.PointsAwarded).
		Msg("Donation status updated")

	if status == models.DonationStatusApproved {
		content := fmt.Sprintf("Thank you! Your donation #%d was approved.", donationID)
		if result.PointsAwarded > 0 {
			content = fmt.Sprintf("Thank you! Your donation #%d was approved. +%d points", donationID, result.PointsAwarded)
		}
		notify.Send(ctx, s.notifier, s.log, result.Donation.UserID, "Donation approved", content)
	}

	return result, nil
}

// GetDonation returns a donation.
func (s *Service) GetDonation(_ context.Context, donationID uint) (*models.Donation, error) {
	return repository.NewDonationRepository(s.db).GetByID(donationID)
}

// ComputePoints returns floor(quantity × donationPerPiece), or apperrors.ErrPointsOverflow
// when the result does not fit a balance.
func ComputePoints(quantity int, settings *models.PointSettings) (int64, error) {
	if quantity <= 0 || !settings.DonationPerPiece.IsPositive() {
		return 0, nil
	}
	total := decimal.NewFromInt(int64(quantity)).Mul(settings.DonationPerPiece).Floor()
	if total.GreaterThan(maxPoints) {
		return 0, fmt.Errorf("%w: donation earns %s points", apperrors.ErrPointsOverflow, total)
	}
	return total.IntPart(), nil
}

func validStatus(status string) bool {
	switch status {
	case models.DonationStatusPending, models.DonationStatusReceived,
		models.DonationStatusApproved, models.DonationStatusRejected:
		return true
	}
	return false
}
