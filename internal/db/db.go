package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DBPair holds separate read and write connections for optimal SQLite concurrency.
// With WAL mode, readers don't block writers and vice versa.
// Using separate pools allows concurrent reads while serializing writes.
type DBPair struct {
	reader *sql.DB // Multiple connections for concurrent reads
	writer *sql.DB // Single connection for serialized writes
}

// Reader returns the read-only database connection pool.
func (p *DBPair) Reader() *sql.DB { return p.reader }

// Writer returns the read-write database connection pool.
func (p *DBPair) Writer() *sql.DB { return p.writer }

// Close closes both database connections.
func (p *DBPair) Close() error {
	var errs []error
	if err := p.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close reader: %w", err))
	}
	if err := p.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Init opens the SQLite database with optimal connection pooling for concurrency.
// Returns a DBPair with separate reader and writer pools.
func Init(dbPath string) (*DBPair, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	// Writer: Single connection, handles all writes
	// - _journal=WAL: Write-ahead logging for concurrent reads
	// - _busy_timeout=5000: Wait up to 5 seconds for locks
	// - cache=shared: Share cache between connections for consistency
	// - mode=rwc: Read-write-create mode
	writerConnStr := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&cache=shared&mode=rwc", dbPath)
	writer, err := sql.Open("sqlite3", writerConnStr)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1) // SQLite serializes writes anyway
	writer.SetMaxIdleConns(1) // Keep one connection warm
	writer.SetConnMaxLifetime(time.Hour)

	// Apply PRAGMAs on writer (affects the database)
	if _, err := writer.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		writer.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	if _, err := writer.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		writer.Close()
		return nil, fmt.Errorf("set foreign_keys: %w", err)
	}

	// Reader: Multiple connections for concurrent reads
	readerConnStr := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&cache=shared&mode=ro", dbPath)
	reader, err := sql.Open("sqlite3", readerConnStr)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4) // Allow 4 concurrent readers
	reader.SetMaxIdleConns(2) // Keep 2 connections warm
	reader.SetConnMaxLifetime(time.Hour)

	// Apply schema using writer
	if _, err := writer.Exec(schemaSQL); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := runMigrations(writer); err != nil {
		reader.Close()
		writer.Close()
		return nil, err
	}

	return &DBPair{reader: reader, writer: writer}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func runMigrations(db *sql.DB) error {
	// The history cursor moved onto the global row after the first release;
	// backfill the columns for databases created before that.
	globalColumns, err := tableColumns(db, "global")
	if err != nil {
		return err
	}

	if !globalColumns["history_snapshot_id"] {
		if _, err := db.Exec("ALTER TABLE global ADD COLUMN history_snapshot_id INTEGER"); err != nil {
			return fmt.Errorf("add global.history_snapshot_id: %w", err)
		}
	}

	if !globalColumns["history_schedule_id"] {
		if _, err := db.Exec("ALTER TABLE global ADD COLUMN history_schedule_id INTEGER"); err != nil {
			return fmt.Errorf("add global.history_schedule_id: %w", err)
		}
	}

	// hero_image_id backfills databases created before the hero slot existed.
	if !globalColumns["hero_image_id"] {
		if _, err := db.Exec("ALTER TABLE global ADD COLUMN hero_image_id INTEGER"); err != nil {
			return fmt.Errorf("add global.hero_image_id: %w", err)
		}
	}

	// images.key arrived with the hybrid settings adapter.
	imagesColumns, err := tableColumns(db, "images")
	if err != nil {
		return err
	}

	if !imagesColumns["key"] {
		if _, err := db.Exec("ALTER TABLE images ADD COLUMN key TEXT"); err != nil {
			return fmt.Errorf("add images.key: %w", err)
		}
		if _, err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_images_key ON images(key) WHERE key IS NOT NULL"); err != nil {
			return fmt.Errorf("create idx_images_key: %w", err)
		}
	}

	// schedule_days.notes was added alongside the day editor notes field.
	dayColumns, err := tableColumns(db, "schedule_days")
	if err != nil {
		return err
	}

	if !dayColumns["notes"] {
		if _, err := db.Exec("ALTER TABLE schedule_days ADD COLUMN notes TEXT"); err != nil {
			return fmt.Errorf("add schedule_days.notes: %w", err)
		}
	}

	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultVal sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return columns, nil
}
