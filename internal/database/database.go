package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"roofing-photo-sync/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectRemote opens the tenant Postgres database that owns the photos table.
func ConnectRemote(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("gagal terhubung ke database remote: %w", err)
	}
	slog.Info("Koneksi database remote berhasil.")
	return db, nil
}

// OpenQueueStore opens the local SQLite file backing the offline queue and
// migrates its tables.
func OpenQueueStore(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("gagal membuat direktori antrean: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gagal membuka antrean lokal: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.QueuedPhoto{}, &model.PhotoDeadLetter{}); err != nil {
		return nil, fmt.Errorf("gagal migrasi antrean lokal: %w", err)
	}

	slog.Info("Antrean lokal siap.", "path", path)
	return db, nil
}
