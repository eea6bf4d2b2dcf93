package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
)

// LedgerRepository handles balance rows and the append-only points log.
//
// Write methods are only meaningful on a transaction-bound DB (see DB.RunInTx).
// The log has no update or delete methods.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// LockBalance returns the user's balance row, holding a row lock until the surrounding
// transaction ends. A missing row is created at zero for an existing user.
func (r *LedgerRepository) LockBalance(userID uint) (*models.UserBalance, error) {
	balance, err := r.selectForUpdate(userID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to lock balance of user %d: %w", userID, err)
	}

	exists, err := userExists(r.db, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrUserNotFound
	}

	// Concurrent first writers race here; the loser's insert is a no-op.
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserBalance{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("failed to open balance of user %d: %w", userID, err)
	}

	balance, err = r.selectForUpdate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance of user %d: %w", userID, err)
	}
	return balance, nil
}

func (r *LedgerRepository) selectForUpdate(userID uint) (*models.UserBalance, error) {
	var balance models.UserBalance
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// UpdateBalance writes the new total of a locked balance row.
func (r *LedgerRepository) UpdateBalance(userID uint, points int64) error {
	res := r.db.Model(&models.UserBalance{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"points_balance": points,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update balance of user %d: %w", userID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("failed to update balance of user %d: %d rows affected", userID, res.RowsAffected)
	}
	return nil
}

// AppendLog inserts a log entry.
func (r *LedgerRepository) AppendLog(entry *models.PointsLogEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append points log entry: %w", err)
	}
	return nil
}

// GetBalance returns the user's current balance. Users without ledger activity have zero.
func (r *LedgerRepository) GetBalance(userID uint) (int64, error) {
	var balance models.UserBalance
	err := r.db.Where("user_id = ?", userID).First(&balance).Error
	if err == nil {
		return balance.PointsBalance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to get balance of user %d: %w", userID, err)
	}

	exists, err := userExists(r.db, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, apperrors.ErrUserNotFound
	}
	return 0, nil
}

// ListLog returns the newest log entries of a user first.
func (r *LedgerRepository) ListLog(userID uint, limit int) ([]models.PointsLogEntry, error) {
	var entries []models.PointsLogEntry
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list points log of user %d: %w", userID, err)
	}
	return entries, nil
}

// BalanceMismatch is a user whose stored balance disagrees with the log.
type BalanceMismatch struct {
	UserID        uint  `json:"user_id"`
	PointsBalance int64 `json:"points_balance"`
	LogTotal      int64 `json:"log_total"`
}

// FindMismatches returns every balance row that differs from the sum of its log, plus
// users that have log entries but no balance row.
func (r *LedgerRepository) FindMismatches() ([]BalanceMismatch, error) {
	var mismatches []BalanceMismatch

	err := r.db.Raw(`
		SELECT b.user_id AS user_id,
		       b.points_balance AS points_balance,
		       COALESCE(SUM(l.delta), 0) AS log_total
		FROM user_balances b
		LEFT JOIN points_log l ON l.user_id = b.user_id
		GROUP BY b.user_id, b.points_balance
		HAVING b.points_balance <> COALESCE(SUM(l.delta), 0)`).
		Scan(&mismatches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compare balances with points log: %w", err)
	}

	var orphans []BalanceMismatch
	err = r.db.Raw(`
		SELECT l.user_id AS user_id,
		       0 AS points_balance,
		       SUM(l.delta) AS log_total
		FROM points_log l
		LEFT JOIN user_balances b ON b.user_id = l.user_id
		WHERE b.user_id IS NULL
		GROUP BY l.user_id
		HAVING SUM(l.delta) <> 0`).
		Scan(&orphans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find log entries without balance: %w", err)
	}

	return append(mismatches, orphans...), nil
}

// CountBalances returns the number of balance rows.
func (r *LedgerRepository) CountBalances() (int64, error) {
	var count int64
	err := r.db.Model(&models.UserBalance{}).Count(&count).Error
	return count, err
}

func userExists(db *DB, userID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}
	return count > 0, nil
}
