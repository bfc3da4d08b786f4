package migrations

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Caooin/DigiGlucose-Insight/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "m.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestMigrator_RunsInOrderOnce(t *testing.T) {
	db := openSQLite(t)
	m := &Migrator{migrations: map[string]Migration{}, log: logger.Discard()}

	fsys := fstest.MapFS{
		"m/0002_insert.sql": {Data: []byte("INSERT INTO widgets (name) VALUES ('a');")},
		"m/0001_create.sql": {Data: []byte("CREATE TABLE widgets (name TEXT);")},
		"m/README.md":       {Data: []byte("ignored")},
	}
	if err := m.LoadSQL(fsys, "m"); err != nil {
		t.Fatalf("LoadSQL: %v", err)
	}

	pending, err := m.Pending(db)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0] != "0001_create" || pending[1] != "0002_insert" {
		t.Fatalf("pending = %v", pending)
	}

	for i := 0; i < 2; i++ {
		if err := m.Run(db); err != nil {
			t.Fatalf("Run %d: %v", i+1, err)
		}
	}

	var n int64
	if err := db.Table("widgets").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("widgets = %d, want 1 (insert must run once)", n)
	}
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openSQLite(t)
	m := &Migrator{migrations: map[string]Migration{}, log: logger.Discard()}
	m.Register("0001_broken", func(tx *gorm.DB) error {
		return tx.Exec("THIS IS NOT SQL").Error
	}, nil)

	if err := m.Run(db); err == nil {
		t.Fatal("expected error from broken migration")
	}

	pending, err := m.Pending(db)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %v, want the broken migration still pending", pending)
	}
}

func TestNew_LoadsBundledMigrations(t *testing.T) {
	m, err := New(logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(m.migrations) != 4 {
		t.Errorf("bundled migrations = %d, want 4", len(m.migrations))
	}
}
