package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopadmin/internal/config"
)

type Database struct {
	*sqlx.DB
	dsn string
}

func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db, dsn: cfg.DSN()}, nil
}

// Wrap adopts an existing handle. dsn is only needed by components that
// open their own listener connection.
func Wrap(db *sqlx.DB, dsn string) *Database {
	return &Database{DB: db, dsn: dsn}
}

// DSN returns the connection string the database was opened with.
func (d *Database) DSN() string { return d.dsn }

func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) RunMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			profile VARCHAR(100) NOT NULL,
			key VARCHAR(20) NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (profile, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_updated_at ON credentials(updated_at)`,
	}

	for _, migration := range migrations {
		if _, err := d.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
