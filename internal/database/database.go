package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// NewDatabase opens the configured store and makes sure the books table
// exists. It is safe to call on every start: an existing table and its rows
// are left untouched.
func NewDatabase(cfg config.Database) (*Database, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DatabaseDriverSQLite
	}
	database := &Database{DB: db, Driver: driver}

	if err := database.ensureSchema(); err != nil {
		_ = database.Close()
		return nil, err
	}

	log.Printf("Database initialized successfully (%s)", describe(cfg))

	return database, nil
}

// NewSQLiteDatabase is a shorthand for a SQLite store at dbPath.
func NewSQLiteDatabase(dbPath string) (*Database, error) {
	return NewDatabase(config.Database{
		Driver:   config.DatabaseDriverSQLite,
		Path:     dbPath,
		LogLevel: "silent",
	})
}

func openDialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DatabaseDriverSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is not set")
		}
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		return sqlite.Open(cfg.Path), nil
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database DSN is required for the postgres driver")
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// ensureSchema creates the books table when it is absent. Existing tables
// are never altered.
func (d *Database) ensureSchema() error {
	migrator := d.DB.Migrator()
	if migrator.HasTable(&entities.Book{}) {
		return nil
	}
	log.Printf("Creating books table")
	if err := migrator.CreateTable(&entities.Book{}); err != nil {
		return fmt.Errorf("failed to create books table: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQL returns the connection pool behind gorm.
func (d *Database) SQL() (*sql.DB, error) {
	return d.DB.DB()
}

// Ping checks that the store is reachable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func describe(cfg config.Database) string {
	if cfg.Driver == config.DatabaseDriverPostgres {
		return "postgres"
	}
	return "sqlite at " + cfg.Path
}
