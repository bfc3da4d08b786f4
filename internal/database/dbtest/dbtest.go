// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	"github.com/Caooin/DigiGlucose-Insight/internal/database"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
	"gorm.io/gorm"
)

// New returns a migrated database living in t.TempDir().
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.NewDB(config.DBConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}, logger.Discard())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
