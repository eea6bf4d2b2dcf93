// Package redemptions handles cash-out requests that convert points into bank transfers.
//
// Points and amount are fixed when a request is made. The balance is debited only when
// staff mark the transfer completed, and the debit is checked against the balance at
// that moment.
package redemptions

import (
	"context"
	"fmt"
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

// Service handles the redemption workflow.
type Service struct {
	db       *repository.DB
	ledger   *ledger.Service
	notifier notify.Dispatcher
	log      *logger.Logger
}

// NewService creates a new redemption service.
func NewService(db *repository.DB, ledgerSvc *ledger.Service, notifier notify.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		ledger:   ledgerSvc,
		notifier: notifier,
		log:      log.Component("redemptions"),
	}
}

// CreateRequest holds a user's cash-out request.
type CreateRequest struct {
	UserID        uint   `json:"user_id"`
	Points        int64  `json:"points"`
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
}

// CreateRedemption records a pending cash-out. The points must reach the configured
// minimum and be covered by the current balance; the amount is derived from the point value.
func (s *Service) CreateRedemption(ctx context.Context, req CreateRequest) (*models.RedemptionRequest, error) {
	if req.UserID == 0 {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	if req.Points <= 0 {
		return nil, apperrors.ErrInvalidPoints
	}
	req.BankName = strings.TrimSpace(req.BankName)
	req.AccountHolder = strings.TrimSpace(req.AccountHolder)
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if req.BankName == "" || req.AccountHolder == "" || req.AccountNumber == "" {
		return nil, fmt.Errorf("%w: bank name, account holder and account number are required", apperrors.ErrInvalidInput)
	}

	redemption := &models.RedemptionRequest{
		UserID:         req.UserID,
		PointsRedeemed: req.Points,
		BankName:       req.BankName,
		AccountHolder:  req.AccountHolder,
		AccountNumber:  req.AccountNumber,
		Status:         models.RedemptionStatusPending,
	}

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		settings, err := repository.NewSettingsRepository(tx).Get()
		if err != nil {
			return err
		}
		if req.Points < settings.MinRedemptionPoints {
			return fmt.Errorf("%w: at least %d points are required", apperrors.ErrBelowMinimum, settings.MinRedemptionPoints)
		}

		balance, err := repository.NewLedgerRepository(tx).GetBalance(req.UserID)
		if err != nil {
			return err
		}
		if balance < req.Points {
			return &apperrors.InsufficientPointsError{UserID: req.UserID, Available: balance, Requested: req.Points}
		}

		redemption.Amount = Amount(req.Points, settings.PointValue)
		return repository.NewRedemptionRepository(tx).Create(redemption)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("redemption_id", redemption.ID).
		Uint("user_id", redemption.UserID).
		Int64("points", redemption.PointsRedeemed).
		Str("amount", redemption.Amount.StringFixed(2)).
		Msg("Redemption requested")

	return redemption, nil
}

// Result describes the outcome of a status update.
type Result struct {
	Redemption *models.RedemptionRequest
	Changed    bool
}

// UpdateStatus moves a pending request to completed (debiting the balance) or cancelled.
// Setting the current status again is a no-op, so a request is debited at most once.
func (s *Service) UpdateStatus(ctx context.Context, redemptionID uint, status string) (*Result, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, status)
	}

	var (
		result   = &Result{}
		movement *ledger.Movement
	)

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		redemptions := repository.NewRedemptionRepository(tx)

		req, err := redemptions.LockByID(redemptionID)
		if err != nil {
			return err
		}
		result.Redemption = req

		if req.Status == status {
			return nil
		}
		if req.Status != models.RedemptionStatusPending {
			return &apperrors.TransitionError{Entity: "redemption", From: req.Status, To: status}
		}

		req.Status = status
		result.Changed = true

		if status == models.RedemptionStatusCompleted {
			movement, err = s.ledger.Debit(ctx, tx, ledger.Entry{
				UserID:     req.UserID,
				Points:     req.PointsRedeemed,
				Reason:     fmt.Sprintf("Cash-out #%d completed", req.ID),
				SourceType: models.SourceRedemption,
				SourceID:   ledger.SourceRef(req.ID),
			})
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			req.CompletedAt = &now
		}

		return redemptions.UpdateStatus(req)
	})
	if err != nil {
		if !apperrors.IsPrecondition(err) && !apperrors.IsNotFound(err) {
			s.log.Error().Err(err).Uint("redemption_id", redemptionID).Str("status", status).Msg("Failed to update redemption status")
		}
		return nil, err
	}

	if !result.Changed {
		return result, nil
	}

	req := result.Redemption
	s.ledger.Committed(movement)
	prommetrics.RecordStatusTransition("redemption", status)
	s.log.Info().
		Uint("redemption_id", redemptionID).
		Str("status", status).
		Msg("Redemption status updated")

	switch status {
	case models.RedemptionStatusCompleted:
		amount, _ := req.Amount.Float64()
		prommetrics.RecordCashout(amount)
		notify.Send(ctx, s.notifier, s.log, req.UserID,
			"Cash-out completed",
			fmt.Sprintf("%s was transferred to your %s account. -%d points", req.Amount.StringFixed(2), req.BankName, req.PointsRedeemed))
	case models.RedemptionStatusCancelled:
		notify.Send(ctx, s.notifier, s.log, req.UserID,
			"Cash-out cancelled",
			fmt.Sprintf("Your cash-out request #%d was cancelled. No points were deducted.", req.ID))
	}

	return result, nil
}

// DeleteRedemption removes a request. Nothing is credited back: a completed request's
// debit stays in the points log.
func (s *Service) DeleteRedemption(_ context.Context, redemptionID uint) error {
	if err := repository.NewRedemptionRepository(s.db).Delete(redemptionID); err != nil {
		return err
	}
	s.log.Info().Uint("redemption_id", redemptionID).Msg("Redemption request deleted")
	return nil
}

// GetRedemption returns a request.
func (s *Service) GetRedemption(_ context.Context, redemptionID uint) (*models.RedemptionRequest, error) {
	return repository.NewRedemptionRepository(s.db).GetByID(redemptionID)
}

// ListRedemptions returns requests filtered by status; an empty status returns all.
func (s *Service) ListRedemptions(_ context.Context, status string) ([]models.RedemptionRequest, error) {
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, status)
	}
	return repository.NewRedemptionRepository(s.db).ListByStatus(status)
}

// Amount converts points to cash, rounded to cents.
func Amount(points int64, pointValue decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(pointValue).Round(2)
}

func validStatus(status string) bool {
	switch status {
	case models.RedemptionStatusPending, models.RedemptionStatusCompleted, models.RedemptionStatusCancelled:
		return true
	}
	return false
}
