// Package database is the durable sink for artifacts, settings and sensor
// readings. The classification core treats it purely as a collaborator
// behind the Store interface.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection with prepared statements.
type DB struct {
	*sql.DB
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// NewDB opens (creating if needed) the rig database under dataDir.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "artifacts.db")
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // sqlite writer; readers share the WAL
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &DB{
		DB:       db,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("database initialized", "path", dbPath)
	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			material TEXT,
			preservation_index REAL,
			gps_lat REAL,
			gps_lng REAL,
			image_url TEXT,
			ai_analysis TEXT,
			discovered_at DATETIME NOT NULL,
			discovered_by TEXT,
			status TEXT DEFAULT 'active'
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id TEXT PRIMARY KEY,
			piezo REAL NOT NULL,
			tds REAL NOT NULL,
			distance REAL NOT NULL,
			gps_lat REAL,
			gps_lng REAL,
			recorded_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_artifacts_material ON artifacts(material)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_discovered_at ON artifacts(discovered_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_recorded_at ON sensor_readings(recorded_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_artifact": `INSERT INTO artifacts
			(id, name, description, material, preservation_index, gps_lat, gps_lng,
			 image_url, ai_analysis, discovered_at, discovered_by, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"insert_sensor_reading": `INSERT INTO sensor_readings
			(id, piezo, tds, distance, gps_lat, gps_lng, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,

		"upsert_setting": `INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,

		"get_setting": `SELECT value FROM settings WHERE key = ?`,

		"get_heatmap": `SELECT gps_lat, gps_lng, COUNT(*) AS artifact_count
			FROM artifacts
			WHERE gps_lat IS NOT NULL AND gps_lng IS NOT NULL
			GROUP BY gps_lat, gps_lng`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt
	}

	return nil
}

func (db *DB) stmt(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}
	return stmt, nil
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
