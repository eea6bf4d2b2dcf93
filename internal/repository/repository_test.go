package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/ecohood/points-ledger/internal/models"
)

// setupTestDB creates a migrated in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Name:  name,
		Email: name + "@example.com",
	}
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}
