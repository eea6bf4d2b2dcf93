// Package ledger implements the only sanctioned writers of user point balances.
//
// Every movement locks the user's balance row, writes the new total and appends one
// points log entry in the same transaction, so a balance always equals the sum of its
// log deltas and never drops below zero.
package ledger

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// Store is the transaction-bound persistence the primitives write through.
type Store interface {
	LockBalance(userID uint) (*models.UserBalance, error)
	UpdateBalance(userID uint, points int64) error
	AppendLog(entry *models.PointsLogEntry) error
}

// Reader serves balance and log queries outside of any transaction.
type Reader interface {
	GetBalance(userID uint) (int64, error)
	ListLog(userID uint, limit int) ([]models.PointsLogEntry, error)
}

// StoreFactory binds a Store to a transaction.
type StoreFactory func(tx *repository.DB) Store

// Entry describes a requested point movement.
type Entry struct {
	UserID     uint
	Points     int64
	Reason     string
	SourceType string
	SourceID   string
}

// SourceRef formats a numeric entity id for Entry.SourceID.
func SourceRef(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Movement is the committed (or pending, when tx-bound) result of a primitive.
type Movement struct {
	UserID       uint
	LogType      string
	SourceType   string
	Requested    int64
	Applied      int64
	BalanceAfter int64
}

// Service applies grants and deductions to the ledger.
type Service struct {
	db       *repository.DB
	storeFor StoreFactory
	reader   Reader
	log      *logger.Logger
}

// NewService creates a ledger service backed by the ledger repository.
func NewService(db *repository.DB, log *logger.Logger) *Service {
	return NewServiceWithStore(db, func(tx *repository.DB) Store {
		return repository.NewLedgerRepository(tx)
	}, log)
}

// NewServiceWithStore creates a ledger service with a custom store factory (for testing).
func NewServiceWithStore(db *repository.DB, storeFor StoreFactory, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		storeFor: storeFor,
		reader:   repository.NewLedgerRepository(db),
		log:      log.Component("ledger"),
	}
}

// Grant adds points to a user's balance.
//
// With a non-nil tx the grant joins that transaction and the caller owns the commit and
// must pass the movement to Committed afterwards. With a nil tx Grant commits on its own.
func (s *Service) Grant(ctx context.Context, tx *repository.DB, e Entry) (*Movement, error) {
	if err := validate(e); err != nil {
		return nil, err
	}
	e = withDefaultSource(e)
	if tx != nil {
		return s.grant(tx, e)
	}

	var m *Movement
	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		var err error
		m, err = s.grant(tx, e)
		return err
	})
	if err != nil {
		s.failed("grant", e, err)
		return nil, err
	}
	s.Committed(m)
	return m, nil
}

func (s *Service) grant(tx *repository.DB, e Entry) (*Movement, error) {
	store := s.storeFor(tx)

	balance, err := store.LockBalance(e.UserID)
	if err != nil {
		return nil, err
	}

	if e.Points > math.MaxInt64-balance.PointsBalance {
		return nil, fmt.Errorf("%w: user %d holds %d, cannot add %d",
			apperrors.ErrPointsOverflow, e.UserID, balance.PointsBalance, e.Points)
	}

	next := balance.PointsBalance + e.Points
	if err := store.UpdateBalance(e.UserID, next); err != nil {
		return nil, err
	}
	if err := store.AppendLog(logEntry(e, models.LogTypeGrant, e.Points, next, e.Reason)); err != nil {
		return nil, err
	}

	return &Movement{
		UserID:       e.UserID,
		LogType:      models.LogTypeGrant,
		SourceType:   e.SourceType,
		Requested:    e.Points,
		Applied:      e.Points,
		BalanceAfter: next,
	}, nil
}

// Deduct removes up to points from a user's balance in its own transaction.
// A deduction larger than the balance is clamped to the balance; the log records the
// amount actually removed. Nothing is written when the balance is already zero.
func (s *Service) Deduct(ctx context.Context, userID uint, points int64, reason string) (*Movement, error) {
	e := Entry{UserID: userID, Points: points, Reason: reason, SourceType: models.SourceAdmin}
	if err := validate(e); err != nil {
		return nil, err
	}

	var m *Movement
	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		store := s.storeFor(tx)

		balance, err := store.LockBalance(userID)
		if err != nil {
			return err
		}

		applied := min(points, balance.PointsBalance)
		next := balance.PointsBalance - applied
		m = &Movement{
			UserID:       userID,
			LogType:      models.LogTypeDeduct,
			SourceType:   e.SourceType,
			Requested:    points,
			Applied:      applied,
			BalanceAfter: next,
		}
		if applied == 0 {
			return nil
		}

		logReason := reason
		if applied < points {
			logReason = fmt.Sprintf("%s (requested %d, balance was %d)", reason, points, balance.PointsBalance)
		}

		if err := store.UpdateBalance(userID, next); err != nil {
			return err
		}
		return store.AppendLog(logEntry(e, models.LogTypeDeduct, -applied, next, logReason))
	})
	if err != nil {
		s.failed("deduct", e, err)
		return nil, err
	}

	if m.Applied == 0 {
		s.log.Info().
			Uint("user_id", userID).
			Int64("requested", m.Requested).
			Msg("Deduction skipped, balance is empty")
		metrics.RecordLedgerOperation("deduct", "noop")
		return m, nil
	}
	if m.Applied < m.Requested {
		s.log.Warn().
			Uint("user_id", userID).
			Int64("requested", m.Requested).
			Int64("applied", m.Applied).
			Msg("Deduction clamped to available balance")
	}
	s.Committed(m)
	return m, nil
}

// Debit removes exactly e.Points or fails with an *apperrors.InsufficientPointsError.
// It follows the same tx ownership rules as Grant.
func (s *Service) Debit(ctx context.Context, tx *repository.DB, e Entry) (*Movement, error) {
	if err := validate(e); err != nil {
		return nil, err
	}
	e = withDefaultSource(e)
	if tx != nil {
		return s.debit(tx, e)
	}

	var m *Movement
	err := s.db.RunInTx(ctx, func(tx *repository.DB) error {
		var err error
		m, err = s.debit(tx, e)
		return err
	})
	if err != nil {
		s.failed("debit", e, err)
		return nil, err
	}
	s.Committed(m)
	return m, nil
}

func (s *Service) debit(tx *repository.DB, e Entry) (*Movement, error) {
	store := s.storeFor(tx)

	balance, err := store.LockBalance(e.UserID)
	if err != nil {
		return nil, err
	}
	if balance.PointsBalance < e.Points {
		return nil, &apperrors.InsufficientPointsError{
			UserID:    e.UserID,
			Available: balance.PointsBalance,
			Requested: e.Points,
		}
	}

	next := balance.PointsBalance - e.Points
	if err := store.UpdateBalance(e.UserID, next); err != nil {
		return nil, err
	}
	if err := store.AppendLog(logEntry(e, models.LogTypeDeduct, -e.Points, next, e.Reason)); err != nil {
		return nil, err
	}

	return &Movement{
		UserID:       e.UserID,
		LogType:      models.LogTypeDeduct,
		SourceType:   e.SourceType,
		Requested:    e.Points,
		Applied:      e.Points,
		BalanceAfter: next,
	}, nil
}

// Committed logs and counts movements once their transaction has committed.
// Nil movements are skipped.
func (s *Service) Committed(moves ...*Movement) {
	for _, m := range moves {
		if m == nil {
			continue
		}
		if m.LogType == models.LogTypeGrant {
			metrics.RecordPointsGranted(m.SourceType, m.Applied)
		} else {
			metrics.RecordPointsDeducted(m.SourceType, m.Applied)
		}
		metrics.RecordLedgerOperation(m.LogType, "success")

		s.log.Info().
			Uint("user_id", m.UserID).
			Str("type", m.LogType).
			Str("source", m.SourceType).
			Int64("points", m.Applied).
			Int64("balance", m.BalanceAfter).
			Msg("Points ledger updated")
	}
}

func (s *Service) failed(op string, e Entry, err error) {
	status := "error"
	if apperrors.IsPrecondition(err) || apperrors.IsNotFound(err) || apperrors.IsValidation(err) {
		status = "rejected"
	}
	metrics.RecordLedgerOperation(op, status)

	if status == "rejected" {
		s.log.Info().Err(err).
			Str("operation", op).
			Uint("user_id", e.UserID).
			Int64("points", e.Points).
			Msg("Ledger operation rejected")
		return
	}
	s.log.Error().Err(err).
		Str("operation", op).
		Uint("user_id", e.UserID).
		Int64("points", e.Points).
		Msg("Ledger operation failed")
}

// GetBalance returns the current balance of a user.
func (s *Service) GetBalance(_ context.Context, userID uint) (int64, error) {
	return s.reader.GetBalance(userID)
}

// GetPointsLog returns the newest log entries of a user.
func (s *Service) GetPointsLog(_ context.Context, userID uint, limit int) ([]models.PointsLogEntry, error) {
	if _, err := s.reader.GetBalance(userID); err != nil {
		return nil, err
	}
	return s.reader.ListLog(userID, limit)
}

func validate(e Entry) error {
	if e.UserID == 0 {
		return fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	if e.Points <= 0 {
		return apperrors.ErrInvalidPoints
	}
	return nil
}

func withDefaultSource(e Entry) Entry {
	if e.SourceType == "" {
		e.SourceType = models.SourceAdmin
	}
	return e
}

func logEntry(e Entry, logType string, delta, balanceAfter int64, reason string) *models.PointsLogEntry {
	entry := &models.PointsLogEntry{
		UserID:       e.UserID,
		Delta:        delta,
		LogType:      logType,
		SourceType:   e.SourceType,
		Reason:       reason,
		BalanceAfter: balanceAfter,
	}
	if e.SourceID != "" {
		id := e.SourceID
		entry.SourceID = &id
	}
	return entry
}
