package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/models"
)

// CatalogRepository stores the item type catalog.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Upsert inserts item types or updates the category/unit of existing names.
func (r *CatalogRepository) Upsert(items []models.ItemType) error {
	if len(items) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "unit"}),
	}).Create(&items).Error
	if err != nil {
		return fmt.Errorf("failed to upsert item types: %w", err)
	}
	return nil
}

// GetByName returns the item type with the exact name, or nil if unknown.
func (r *CatalogRepository) GetByName(name string) (*models.ItemType, error) {
	var item models.ItemType
	err := r.db.Where("name = ?", name).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item type %q: %w", name, err)
	}
	return &item, nil
}

// List returns every item type ordered by name.
func (r *CatalogRepository) List() ([]models.ItemType, error) {
	var items []models.ItemType
	err := r.db.Order("name ASC").Find(&items).Error
	return items, err
}
