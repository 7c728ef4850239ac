package kv

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/starford/devspace/internal/checksum"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// SQLite stores keys as rows of a single table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("kv: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv: migrate: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return goose.Up(conn, "migrations")
}

func (s *SQLite) Read(key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	var value string
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Write(key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("kv: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("kv: write %s: %w", key, err)
	}
	_, err = tx.Exec(`INSERT INTO kv_history (key, checksum, size) VALUES (?, ?, ?)`,
		key, checksum.Sum(value), len(value))
	if err != nil {
		return fmt.Errorf("kv: write history %s: %w", key, err)
	}
	return tx.Commit()
}

// HistoryEntry describes one past write of a key.
type HistoryEntry struct {
	Checksum  string    `json:"checksum"`
	Size      int       `json:"size"`
	WrittenAt time.Time `json:"writtenAt"`
}

// History returns the most recent writes of key, newest first.
func (s *SQLite) History(key string, limit int) ([]HistoryEntry, error) {
	rows, err := s.conn.Query(`
		SELECT checksum, size, written_at FROM kv_history
		WHERE key = ? ORDER BY id DESC LIMIT ?`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("kv: history %s: %w", key, err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.Checksum, &h.Size, &h.WrittenAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}
