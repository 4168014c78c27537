package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/docstruct/internal/port"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultPollInterval = 250 * time.Millisecond

// Queue is a durable single-host queue in a SQLite file. Receive deletes the
// row it returns in the same statement.
type Queue struct {
	db           *sql.DB
	pollInterval time.Duration
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewQueue(dbPath string) (*Queue, error) {
	registerHook()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent reads but only one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Queue{db: db, pollInterval: defaultPollInterval}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

func (q *Queue) Post(ctx context.Context, body []byte) error {
	if _, err := q.db.ExecContext(ctx, `INSERT INTO messages (body) VALUES (?)`, body); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Receive polls until a message is available or wait has elapsed.
func (q *Queue) Receive(ctx context.Context, wait time.Duration) ([]byte, error) {
	deadline := time.Now().Add(wait)
	for {
		body, err := q.claim(ctx)
		if err != nil || body != nil {
			return body, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		sleep := min(q.pollInterval, remaining)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (q *Queue) claim(ctx context.Context) ([]byte, error) {
	var body []byte
	err := q.db.QueryRowContext(ctx, `
		DELETE FROM messages
		WHERE id = (SELECT id FROM messages ORDER BY id LIMIT 1)
		RETURNING body`).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim message: %w", err)
	}
	if body == nil {
		body = []byte{}
	}
	return body, nil
}

// Len reports the number of queued messages.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

var _ port.Queue = (*Queue)(nil)
