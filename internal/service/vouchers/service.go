// Package vouchers exchanges points for partner vouchers with limited stock.
package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecohood/points-ledger/internal/apperrors"
	prommetrics "github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// Service handles the voucher catalog and redemptions.
type Service struct {
	db       *repository.DB
	ledger   *ledger.Service
	notifier notify.Dispatcher
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a new voucher service.
func NewService(db *repository.DB, ledgerSvc *ledger.Service, notifier notify.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		ledger:   ledgerSvc,
		notifier: notifier,
		log:      log.Component("vouchers"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest holds the data of a new voucher.
type CreateRequest struct {
	Title          string     `json:"title"`
	Partner        string     `json:"partner"`
	PointsRequired int64      `json:"points_required"`
	Quantity       int        `json:"quantity"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// CreateVoucher adds an active voucher to the catalog.
func (s *Service) CreateVoucher(_ context.Context, req CreateRequest) (*models.Voucher, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if req.PointsRequired <= 0 {
		return nil, apperrors.ErrInvalidPoints
	}
	if req.Quantity < 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	voucher := &models.Voucher{
		Title:          strings.TrimSpace(req.Title),
		Partner:        strings.TrimSpace(req.Partner),
		PointsRequired: req.PointsRequired,
		Quantity:       req.Quantity,
		Status:         models.VoucherStatusActive,
		ExpiresAt:      req.ExpiresAt,
	}
	if err := repository.NewVoucherRepository(s.db).Create(voucher); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("voucher_id", voucher.ID).
		Str("title", voucher.Title).
		Int64("points_required", voucher.PointsRequired).
		Int("quantity", voucher.Quantity).
		Msg("Voucher created")

	return voucher, nil
}

// ListVouchers returns the vouchers that can be redeemed right now.
func (s *Service) ListVouchers(_ context.Context) ([]models.Voucher, error) {
	return repository.NewVoucherRepository(s.db).ListActive(s.now())
}

// GetVoucher returns a voucher.
func (s *Service) GetVoucher(_ context.Context, voucherID uint) (*models.Voucher, error) {
	return repository.NewVoucherRepository(s.db).GetByID(voucherID)
}

// RedeemVoucher spends the voucher's points and takes one unit of stock in one
// transaction. The voucher row is locked before the balance row.
func (s *Service) RedeemVoucher(ctx context.Context, voucherID, userID uint) (*models.VoucherRedemption, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}

	var (
		redemption *models.VoucherRedemption
		voucher    *models.Voucher
		movement   *ledger.Movement
	)

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		vouchers := repository.NewVoucherRepository(tx)

		var err error
		voucher, err = vouchers.LockByID(voucherID)
		if err != nil {
			return err
		}
		if !voucher.Available(s.now()) {
			return fmt.Errorf("%w: %s", apperrors.ErrVoucherUnavailable, voucher.Title)
		}

		movement, err = s.ledger.Debit(ctx, tx, ledger.Entry{
			UserID:     userID,
			Points:     voucher.PointsRequired,
			Reason:     fmt.Sprintf("Voucher redeemed: %s", voucher.Title),
			SourceType: models.SourceVoucher,
			SourceID:   ledger.SourceRef(voucher.ID),
		})
		if err != nil {
			return err
		}

		if err := vouchers.DecrementStock(voucher.ID); err != nil {
			return err
		}
		voucher.Quantity--

		redemption = &models.VoucherRedemption{
			UserID:      userID,
			VoucherID:   voucher.ID,
			PointsSpent: voucher.PointsRequired,
			Status:      models.VoucherRedemptionPending,
		}
		return vouchers.CreateRedemption(redemption)
	})
	if err != nil {
		prommetrics.RecordVoucherRedemption(redeemStatus(err))
		if !apperrors.IsPrecondition(err) && !apperrors.IsNotFound(err) {
			s.log.Error().Err(err).Uint("voucher_id", voucherID).Uint("user_id", userID).Msg("Failed to redeem voucher")
		}
		return nil, err
	}

	s.ledger.Committed(movement)
	prommetrics.RecordVoucherRedemption("success")
	s.log.Info().
		Uint("voucher_id", voucher.ID).
		Uint("user_id", userID).
		Int64("points", voucher.PointsRequired).
		Int("remaining", voucher.Quantity).
		Msg("Voucher redeemed")

	notify.Send(ctx, s.notifier, s.log, userID,
		"Voucher redeemed",
		fmt.Sprintf("You redeemed %q for %d points. Your coupon code will follow shortly.", voucher.Title, voucher.PointsRequired))

	redemption.Voucher = voucher
	return redemption, nil
}

// ProcessRedemption issues the coupon code of a pending redemption. It does not touch
// the ledger. Processing an already processed redemption returns it unchanged.
func (s *Service) ProcessRedemption(ctx context.Context, redemptionID uint) (*models.VoucherRedemption, error) {
	var (
		redemption *models.VoucherRedemption
		changed    bool
	)

	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		vouchers := repository.NewVoucherRepository(tx)

		var err error
		redemption, err = vouchers.LockRedemption(redemptionID)
		if err != nil {
			return err
		}
		if redemption.Status == models.VoucherRedemptionProcessed {
			return nil
		}

		code := CouponCode()
		now := s.now()
		redemption.Status = models.VoucherRedemptionProcessed
		redemption.CouponCode = &code
		redemption.ProcessedAt = &now
		changed = true

		return vouchers.MarkProcessed(redemption)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info().
			Uint("voucher_redemption_id", redemption.ID).
			Uint("user_id", redemption.UserID).
			Msg("Voucher redemption processed")

		notify.Send(ctx, s.notifier, s.log, redemption.UserID,
			"Your coupon is ready",
			fmt.Sprintf("Coupon code: %s", *redemption.CouponCode))
	}

	return redemption, nil
}

// ListUserRedemptions returns a user's voucher redemptions.
func (s *Service) ListUserRedemptions(_ context.Context, userID uint) ([]models.VoucherRedemption, error) {
	return repository.NewVoucherRepository(s.db).ListRedemptionsByUser(userID)
}

// CouponCode generates a random coupon code such as "ECO-1F3A9C07B2D4".
func CouponCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ECO-" + strings.ToUpper(raw[:12])
}

func redeemStatus(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrVoucherUnavailable):
		return "unavailable"
	case errors.Is(err, apperrors.ErrInsufficientPoints):
		return "insufficient_points"
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
