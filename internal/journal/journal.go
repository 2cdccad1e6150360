package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"goensight/internal/config"
	"goensight/internal/events"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the
// schema changes; holders of older journals delete the file.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var (
	// ErrLocked reports that another process holds the journal.
	ErrLocked = errors.New("journal: locked by another process")

	// ErrSchemaMismatch indicates the database schema version does
	// not match the expected version.
	ErrSchemaMismatch = errors.New("journal: schema version mismatch")
)

// Entry is one recorded event.
type Entry struct {
	ID         int64
	ReceivedAt time.Time
	Raw        string
	Tag        string
	Enum       string
	UID        int64
}

// EntryFromURL decodes an event URL into an entry. The raw URL is
// always preserved; the tag, attribute name and object id are filled
// in when the URL decodes cleanly.
func EntryFromURL(eventURL string, at time.Time) Entry {
	entry := Entry{ReceivedAt: at.UTC(), Raw: eventURL}
	parsed, err := url.Parse(events.NormalizeURL(eventURL))
	if err != nil {
		return entry
	}
	entry.Tag = strings.TrimPrefix(parsed.Path, "/")
	query := parsed.Query()
	entry.Enum = query.Get("enum")
	if uid, err := strconv.ParseInt(query.Get("uid"), 10, 64); err == nil {
		entry.UID = uid
	}
	return entry
}

// Journal is an append-only event log backed by SQLite.
type Journal struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the journal database named by the
// configuration and takes its process lock.
func Open(cfg *config.Config) (*Journal, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	path := cfg.Journal.Path
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire journal lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	journal := &Journal{db: db, path: path, lock: lock}
	if err := journal.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return journal, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		if _, err := j.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	err = j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}

// Append records one event.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	received := entry.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	timestamp := received.UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO events (received_at, raw, tag, enum, uid) VALUES (?, ?, ?, ?, ?)`,
			timestamp, entry.Raw, entry.Tag, entry.Enum, entry.UID)
		return err
	})
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, received_at, raw, tag, enum, uid FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			timestamp string
		)
		if err := rows.Scan(&entry.ID, &timestamp, &entry.Raw, &entry.Tag, &entry.Enum, &entry.UID); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if at, err := parseTimeString(timestamp); err == nil {
			entry.ReceivedAt = at
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}

// Count reports how many events the journal holds.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM events").Scan(&count); err != nil {
		return 0, fmt.Errorf("count journal rows: %w", err)
	}
	return count, nil
}

// Close releases the database connection and the process lock.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	var closeErr error
	if j.db != nil {
		closeErr = j.db.Close()
	}
	if j.lock != nil {
		if err := j.lock.Unlock(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
