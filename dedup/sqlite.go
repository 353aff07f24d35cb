package dedup

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"postfetch/internal"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// SQLiteLedger keeps the download ledger in a local sqlite file
type SQLiteLedger struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// OpenSQLite opens or creates the ledger at path
func OpenSQLite(path string) (*SQLiteLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Workers share one connection so writes never hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteLedger{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply schema: %w", err)
	}

	var versionStr string
	err = tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&versionStr)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata(key, value) VALUES('schema_version', ?)", strconv.Itoa(schemaVersion)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert schema version: %w", err)
		}
		return tx.Commit()
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read schema version: %w", err)
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("parse schema version: %w", err)
	}
	if version > schemaVersion {
		_ = tx.Rollback()
		return fmt.Errorf("ledger schema version %d is newer than supported %d", version, schemaVersion)
	}

	return tx.Commit()
}

// Close closes the database
func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// IsDuplicate implements internal.DuplicateChecker
func (l *SQLiteLedger) IsDuplicate(ctx context.Context, url string) (bool, error) {
	var exists int
	err := l.db.QueryRowContext(ctx, "SELECT 1 FROM downloads WHERE url_hash = ?", hashURL(url)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return true, nil
}

// MarkDownloaded implements internal.DuplicateChecker. A URL downloaded again keeps the latest path.
func (l *SQLiteLedger) MarkDownloaded(ctx context.Context, item internal.ContentDescriptor) error {
	if strings.TrimSpace(item.SourceURL) == "" {
		return errors.New("source url is required")
	}

	_, err := l.db.ExecContext(ctx, `
INSERT INTO downloads(url_hash, source_url, path, size, downloaded_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(url_hash) DO UPDATE SET
    path = excluded.path,
    size = excluded.size,
    downloaded_at = excluded.downloaded_at`,
		hashURL(item.SourceURL), item.SourceURL, item.Path, item.Size, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

// Lookup returns the record for url, or nil when it was never downloaded
func (l *SQLiteLedger) Lookup(ctx context.Context, url string) (*Record, error) {
	var (
		record       Record
		downloadedAt string
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT source_url, path, size, downloaded_at FROM downloads WHERE url_hash = ?", hashURL(url)).
		Scan(&record.SourceURL, &record.Path, &record.Size, &downloadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	record.DownloadedAt, err = time.Parse(time.RFC3339Nano, downloadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse downloaded_at: %w", err)
	}
	return &record, nil
}

// Locate returns the saved path of url, or "" when it was never downloaded
func (l *SQLiteLedger) Locate(ctx context.Context, url string) (string, error) {
	record, err := l.Lookup(ctx, url)
	if err != nil || record == nil {
		return "", err
	}
	return record.Path, nil
}

// Count returns the number of remembered downloads
func (l *SQLiteLedger) Count(ctx context.Context) (int, error) {
	var count int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM downloads").Scan(&count); err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return count, nil
}
