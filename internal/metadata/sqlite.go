package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/ringbiomass/internal/rings"
)

const sitesSchema = `
CREATE TABLE IF NOT EXISTS sites (
	site_id           TEXT PRIMARY KEY COLLATE NOCASE,
	tree_species_code TEXT NOT NULL DEFAULT 'PIST',
	region            TEXT,
	latitude          REAL,
	longitude         REAL
)`

// SQLiteProvider serves site metadata from the sites table of a SQLite database.
type SQLiteProvider struct {
	db *sql.DB
}

// NewSQLiteProvider opens dbPath and creates the sites table when it does not exist.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(sitesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sites table: %w", err)
	}

	return &SQLiteProvider{db: db}, nil
}

// Lookup returns the stored site, or the default context when the site is absent.
func (s *SQLiteProvider) Lookup(ctx context.Context, siteID string) (rings.SiteContext, error) {
	site, ok, err := s.Find(ctx, siteID)
	if err != nil || ok {
		return site, err
	}
	return rings.DefaultSite(siteID), nil
}

// Find returns the stored site and whether it exists.
func (s *SQLiteProvider) Find(ctx context.Context, siteID string) (rings.SiteContext, bool, error) {
	query := `
		SELECT site_id, tree_species_code, region, latitude, longitude
		FROM sites
		WHERE site_id = ?
	`

	var site rings.SiteContext
	var region sql.NullString
	var lat, lon sql.NullFloat64

	err := s.db.QueryRowContext(ctx, query, siteID).Scan(&site.SiteID, &site.Species, &region, &lat, &lon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rings.SiteContext{}, false, nil
		}
		return rings.SiteContext{}, false, fmt.Errorf("failed to get site %s: %w", siteID, err)
	}

	if region.Valid {
		site.Region = region.String
	}
	if lat.Valid {
		site.Latitude = rings.Float(lat.Float64)
	}
	if lon.Valid {
		site.Longitude = rings.Float(lon.Float64)
	}
	if site.Species == "" {
		site.Species = rings.DefaultSpecies
	}
	return site, true, nil
}

// Upsert stores site, replacing any existing row with the same id.
func (s *SQLiteProvider) Upsert(ctx context.Context, site rings.SiteContext) error {
	query := `
		INSERT INTO sites (site_id, tree_species_code, region, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(site_id) DO UPDATE SET
			tree_species_code = excluded.tree_species_code,
			region = excluded.region,
			latitude = excluded.latitude,
			longitude = excluded.longitude
	`

	var lat, lon sql.NullFloat64
	if site.Latitude != nil {
		lat = sql.NullFloat64{Float64: *site.Latitude, Valid: true}
	}
	if site.Longitude != nil {
		lon = sql.NullFloat64{Float64: *site.Longitude, Valid: true}
	}
	species := site.Species
	if species == "" {
		species = rings.DefaultSpecies
	}

	if _, err := s.db.ExecContext(ctx, query, site.SiteID, species, site.Region, lat, lon); err != nil {
		return fmt.Errorf("failed to store site %s: %w", site.SiteID, err)
	}
	return nil
}

// Import copies every site of src into the database in one transaction.
func (s *SQLiteProvider) Import(ctx context.Context, sites Static) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO sites (site_id, tree_species_code, region, latitude, longitude) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, site := range sites {
		var lat, lon sql.NullFloat64
		if site.Latitude != nil {
			lat = sql.NullFloat64{Float64: *site.Latitude, Valid: true}
		}
		if site.Longitude != nil {
			lon = sql.NullFloat64{Float64: *site.Longitude, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, site.SiteID, site.Species, site.Region, lat, lon); err != nil {
			return fmt.Errorf("failed to import site %s: %w", site.SiteID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
