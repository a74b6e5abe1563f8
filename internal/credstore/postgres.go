package credstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopadmin/internal/storage"
)

// NotifyChannel is the LISTEN/NOTIFY channel written on every change.
// The payload is the profile name.
const NotifyChannel = "shopadmin_credentials"

const (
	opTimeout          = 5 * time.Second
	listenerMinBackoff = 10 * time.Second
	listenerMaxBackoff = time.Minute
	listenerPing       = 90 * time.Second
)

// Postgres keeps credentials in the credentials table, one row per key,
// scoped by profile so several accounts can share a database.
type Postgres struct {
	db      *storage.Database
	profile string
	logger  *slog.Logger
}

func NewPostgres(db *storage.Database, profile string, logger *slog.Logger) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if profile == "" {
		return nil, errors.New("profile is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, profile: profile, logger: logger}, nil
}

func (p *Postgres) Put(c Credentials) error {
	if err := c.validate(); err != nil {
		return err
	}
	entries, err := encodeEntries(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO credentials (profile, key, value, updated_at)
		VALUES ($1, $2, $3, NOW()), ($1, $4, $5, NOW())
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, p.profile, KeyToken, entries[KeyToken], KeyUser, entries[KeyUser]); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, p.profile); err != nil {
		return fmt.Errorf("failed to notify credential change: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credentials: %w", err)
	}
	return nil
}

func (p *Postgres) Get() (*Credentials, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	query := `SELECT key, value FROM credentials WHERE profile = $1`
	if err := p.db.SelectContext(ctx, &rows, query, p.profile); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	entries := make(map[string]string, len(rows))
	for _, row := range rows {
		entries[row.Key] = row.Value
	}
	creds, err := decodeEntries(entries)
	if err != nil {
		p.logger.Warn("ignoring malformed stored credentials", "profile", p.profile, "error", err)
		return nil, nil
	}
	return creds, nil
}

func (p *Postgres) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE profile = $1`, p.profile); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, p.profile); err != nil {
		return fmt.Errorf("failed to notify credential change: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential removal: %w", err)
	}
	return nil
}

func (p *Postgres) Token() string {
	c, err := p.Get()
	if err != nil {
		p.logger.Debug("token lookup failed", "profile", p.profile, "error", err)
		return ""
	}
	if c == nil {
		return ""
	}
	return c.Token
}

// Watch listens on NotifyChannel over a dedicated connection and
// signals for notifications about this profile. A reconnect also
// signals, since changes may have been missed while disconnected.
func (p *Postgres) Watch(ctx context.Context) (<-chan struct{}, error) {
	if p.db.DSN() == "" {
		return nil, errors.New("watching requires a database opened from a DSN")
	}
	listener := pq.NewListener(p.db.DSN(), listenerMinBackoff, listenerMaxBackoff,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				p.logger.Warn("credential listener event", "event", int(event), "error", err)
			}
		})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if n != nil && n.Extra != p.profile {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case <-time.After(listenerPing):
				go func() {
					if err := listener.Ping(); err != nil {
						p.logger.Debug("credential listener ping failed", "error", err)
					}
				}()
			}
		}
	}()
	return out, nil
}
