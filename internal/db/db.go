// Package db opens GORM connections for the run-log store.
package db

import (
	"fmt"

	"github.com/zulandar/switchman/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the run-log database. backend is "sqlite" (dsn is a
// file path) or "mysql" (dsn is a go-sql-driver DSN).
func Open(backend, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		conn *gorm.DB
		err  error
	)
	switch backend {
	case "sqlite":
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	case "mysql":
		conn, err = gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("db: unknown backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", backend, err)
	}
	return conn, nil
}

// AutoMigrate creates or updates the run-log tables.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&models.RunBlock{}); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
