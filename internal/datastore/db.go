package datastore

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	// Drivers selectable by DB_DRIVER.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global connection pool opened by InitDB.
var DB *sql.DB

// Driver is the database/sql driver name DB was opened with.
var Driver string

// ErrNotInitialized is returned by store functions called before InitDB.
var ErrNotInitialized = errors.New("database connection not initialized")

// ErrNotFound wraps lookups and updates that matched no row.
var ErrNotFound = errors.New("record not found")

// InitDB opens and pings the database. driver is one of postgres (lib/pq),
// pgx (pgx stdlib) or sqlite3.
func InitDB(driver, dataSourceName string) error {
	switch driver {
	case "postgres", "pgx", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver '%s'", driver)
	}
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite3" {
		// One connection keeps :memory: databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	DB = db
	Driver = driver
	log.Printf("Database connection established (driver: %s).", driver)
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS scoring_jobs (
		id SERIAL PRIMARY KEY,
		job_name TEXT,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		parameters JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS utterance_results (
		id SERIAL PRIMARY KEY,
		job_id INTEGER NOT NULL REFERENCES scoring_jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		utterance_id TEXT NOT NULL,
		reference_text TEXT NOT NULL,
		hypothesis_text TEXT NOT NULL,
		wer DOUBLE PRECISION NOT NULL,
		cer DOUBLE PRECISION NOT NULL,
		word_errors JSONB,
		char_errors JSONB,
		highlighted_reference TEXT NOT NULL,
		highlighted_hypothesis TEXT NOT NULL,
		digest TEXT NOT NULL,
		latency_ms BIGINT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS utterance_results_job_id_idx ON utterance_results(job_id)`,
	`CREATE TABLE IF NOT EXISTS recognizer_profiles (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		engine TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		endpoint_id TEXT NOT NULL DEFAULT '',
		language_code TEXT NOT NULL DEFAULT '',
		options JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audio_test_cases (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		language_code TEXT NOT NULL DEFAULT '',
		audio_object_key TEXT NOT NULL,
		reference_text TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS scoring_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_name TEXT,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		parameters TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS utterance_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES scoring_jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		utterance_id TEXT NOT NULL,
		reference_text TEXT NOT NULL,
		hypothesis_text TEXT NOT NULL,
		wer REAL NOT NULL,
		cer REAL NOT NULL,
		word_errors TEXT,
		char_errors TEXT,
		highlighted_reference TEXT NOT NULL,
		highlighted_hypothesis TEXT NOT NULL,
		digest TEXT NOT NULL,
		latency_ms INTEGER,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS utterance_results_job_id_idx ON utterance_results(job_id)`,
	`CREATE TABLE IF NOT EXISTS recognizer_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		engine TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		endpoint_id TEXT NOT NULL DEFAULT '',
		language_code TEXT NOT NULL DEFAULT '',
		options TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audio_test_cases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		language_code TEXT NOT NULL DEFAULT '',
		audio_object_key TEXT NOT NULL,
		reference_text TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the tables for the current driver's dialect.
func Migrate() error {
	if DB == nil {
		return ErrNotInitialized
	}
	schema := postgresSchema
	if Driver == "sqlite3" {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Println("Database schema is up to date.")
	return nil
}

// nullJSON maps an empty or null document to SQL NULL.
func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func checkAffected(res sql.Result, what string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s ID %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s with ID %d: %w", what, id, ErrNotFound)
	}
	return nil
}

func wrapNoRows(err error, what string, id int) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s with ID %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
