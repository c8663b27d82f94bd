// Package repo implements the data persistence layer for contact submissions
// and admin replies, backed by GORM. This file contains database bootstrapping
// helpers for SQLite (pure Go driver, the default) and Postgres, plus schema
// migrations.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

// Open picks the driver from dsn: postgres:// and postgresql:// URLs go to
// Postgres, anything else is treated as a SQLite file path.
func Open(dsn string) (*gorm.DB, error) {
	low := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(low, "postgres://") || strings.HasPrefix(low, "postgresql://") {
		return OpenPostgres(dsn)
	}
	return OpenSQLite(dsn)
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// foreign_keys and busy_timeout go through the DSN so that every pooled
// connection gets them, not only the one that runs the Exec.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")

	configurePool(db, 10)
	if err := instrument(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenPostgres opens a Postgres database through the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	configurePool(db, 20)
	if err := instrument(db); err != nil {
		return nil, err
	}
	return db, nil
}

func configurePool(db *gorm.DB, maxOpen int) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// instrument attaches OpenTelemetry spans to every GORM statement.
func instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.ContactSubmission{},
		&domain.AdminReply{},
		&domain.Idempotency{},
	)
}

// EnsureReplySchema creates the replies table if it is missing. The reply
// store calls it on construction so it does not depend on AutoMigrate having
// run against the same database.
func EnsureReplySchema(db *gorm.DB) error {
	if db.Migrator().HasTable(&domain.AdminReply{}) {
		return nil
	}
	return db.AutoMigrate(&domain.AdminReply{})
}
