package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		patient_name TEXT NOT NULL DEFAULT '',
		patient_info TEXT NOT NULL DEFAULT '{}',
		image_digest TEXT NOT NULL,
		image_quality TEXT NOT NULL,
		total_count INTEGER DEFAULT 0,
		confidence REAL DEFAULT 0,
		findings TEXT NOT NULL DEFAULT '',
		recommendations TEXT NOT NULL DEFAULT '',
		model_used TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL UNIQUE,
		filepath TEXT NOT NULL,
		filesize INTEGER DEFAULT 0,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id TEXT NOT NULL,
		stone_index INTEGER NOT NULL,
		location TEXT NOT NULL,
		x REAL DEFAULT 0,
		y REAL DEFAULT 0,
		width REAL DEFAULT 0,
		height REAL DEFAULT 0,
		size_mm REAL DEFAULT 0,
		confidence REAL DEFAULT 0,
		characteristics TEXT NOT NULL DEFAULT '',
		class_id INTEGER DEFAULT 0,
		FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_patient ON analyses(patient_name);
	CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);
	CREATE INDEX IF NOT EXISTS idx_analyses_digest ON analyses(image_digest);
	CREATE INDEX IF NOT EXISTS idx_stones_location ON stones(location);
	CREATE INDEX IF NOT EXISTS idx_stones_analysis_id ON stones(analysis_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
