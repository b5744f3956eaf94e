package config

import (
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/yaml.v2"
	_ "modernc.org/sqlite"
)

const defaultConfigName = "default"

const configsSchema = `
CREATE TABLE IF NOT EXISTS configs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	document   TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// SQLiteProvider implements ConfigProvider for SQLite database configuration. Each
// named configuration is stored as a YAML document so both providers share one schema.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(configsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create configs table: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the default configuration from the database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	var document string
	err := s.db.QueryRow(`SELECT document FROM configs WHERE name = ?`, defaultConfigName).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("configuration %q not found in %s", defaultConfigName, s.dbPath)
		}
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return ParseYAML([]byte(document))
}

// GetCorrections returns the correction settings
func (s *SQLiteProvider) GetCorrections() (*CorrectionsData, error) {
	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &cfg.Corrections, nil
}

// GetAllodb returns the equation service settings
func (s *SQLiteProvider) GetAllodb() (*AllodbData, error) {
	cfg, err := s.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &cfg.Allodb, nil
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig validates configData and stores it as the default configuration
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	if err := configData.Validate(); err != nil {
		return err
	}
	document, err := yaml.Marshal(configData)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO configs (name, document) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = datetime('now')
	`
	if _, err := tx.Exec(query, defaultConfigName, string(document)); err != nil {
		return fmt.Errorf("failed to store configuration: %w", err)
	}

	return tx.Commit()
}
