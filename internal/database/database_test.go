package database

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	"github.com/Caooin/DigiGlucose-Insight/internal/database/migrations"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
	"gorm.io/gorm"
)

func TestNewDB_SQLiteIsIdempotent(t *testing.T) {
	cfg := config.DBConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "nested", "app.db")}

	for i := 0; i < 2; i++ {
		db, err := NewDB(cfg, logger.Discard())
		if err != nil {
			t.Fatalf("NewDB run %d: %v", i+1, err)
		}

		for _, model := range Models() {
			if !db.Migrator().HasTable(model) {
				t.Errorf("run %d: missing table for %T", i+1, model)
			}
		}

		var count int64
		if err := db.Model(&migrations.MigrationRecord{}).Count(&count).Error; err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if count != 4 {
			t.Errorf("run %d: recorded migrations = %d, want 4", i+1, count)
		}

		if !db.Migrator().HasIndex(&domain.GlucoseReading{}, "idx_glucose_readings_user_time") {
			t.Errorf("run %d: reading index missing", i+1)
		}

		sqlDB, _ := db.DB()
		sqlDB.Close()
	}
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	if _, err := NewDB(config.DBConfig{Driver: "oracle"}, logger.Discard()); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNewDB_MissingRowsAreNotLogged(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	db, err := NewDB(config.DBConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "app.db")}, log)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	buf.Reset()

	var user domain.User
	if err := db.First(&user, 999).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("First = %v, want ErrRecordNotFound", err)
	}
	if strings.Contains(buf.String(), "record not found") {
		t.Errorf("missing row was logged: %q", buf.String())
	}

	if err := db.Exec("SELECT * FROM no_such_table").Error; err == nil {
		t.Fatal("expected error for unknown table")
	}
	if !strings.Contains(buf.String(), "no_such_table") {
		t.Errorf("query errors should reach slog, got %q", buf.String())
	}
}
