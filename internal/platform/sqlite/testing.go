package sqlite

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenTest opens a private in-memory database for t.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
