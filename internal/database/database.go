package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New opens the history store and applies pending migrations. Sqlite URLs use
// the sqlite:///path form; postgres URLs are handed to the driver as-is.
func New(url string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(url, "sqlite://"):
		path := sqlitePath(url)
		if !strings.Contains(path, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(path)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialector = postgres.Open(url)
	default:
		return nil, fmt.Errorf("unsupported history database url: %s", url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// sqlitePath strips the url scheme: sqlite:///data/x.db is the relative path
// data/x.db, sqlite:////var/x.db the absolute path /var/x.db.
func sqlitePath(url string) string {
	path := strings.TrimPrefix(url, "sqlite://")
	return strings.TrimPrefix(path, "/")
}
