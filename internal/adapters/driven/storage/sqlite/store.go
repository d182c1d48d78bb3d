// Package sqlite provides the SQLite-backed inventory store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/openamenity/amenity-ingest/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
)

// facilityType is the inventory type marker for every ingested record.
const facilityType = "toilet"

// Store is the SQLite-backed persistence gateway.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.amenity-ingest/data/inventory.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".amenity-ingest", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "inventory.db")

	// WAL mode for better concurrency between the engine and readers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InventoryStore returns an InventoryStore interface backed by this store.
func (s *Store) InventoryStore() driven.InventoryStore {
	return &inventoryStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %s: %w", name, err)
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// inventoryStore implements driven.InventoryStore.
type inventoryStore struct {
	store *Store
}

var _ driven.InventoryStore = (*inventoryStore)(nil)

// Save stores or updates a record. Records project to the inventory row
// shape: name, coordinates, a derived facilities list, a type marker,
// source, verified flag, and a metadata sub-object.
func (s *inventoryStore) Save(ctx context.Context, record *domain.Record) error {
	facilitiesJSON, err := json.Marshal(record.Facilities())
	if err != nil {
		return fmt.Errorf("marshalling facilities: %w", err)
	}
	metadataJSON, err := json.Marshal(record.Metadata())
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO inventory (id, name, latitude, longitude, facilities, type, source, verified, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			facilities = excluded.facilities,
			source = excluded.source,
			verified = excluded.verified,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, record.ID, nullableString(record.Name), record.Latitude, record.Longitude,
		string(facilitiesJSON), facilityType, string(record.Source),
		record.Verified, string(metadataJSON), updatedAt)

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// FindByID retrieves a record by ID.
func (s *inventoryStore) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, latitude, longitude, facilities, source, verified, metadata, updated_at
		FROM inventory WHERE id = ?
	`, id)

	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// FindAll returns the full inventory ordered by update time then ID, so
// deduplication evaluation order stays deterministic across runs.
func (s *inventoryStore) FindAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, latitude, longitude, facilities, source, verified, metadata, updated_at
		FROM inventory ORDER BY updated_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying inventory: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventory: %w", err)
	}
	return records, nil
}

// scanRecord rebuilds a canonical record from an inventory row.
func scanRecord(scan func(dest ...any) error) (*domain.Record, error) {
	var record domain.Record
	var name sql.NullString
	var facilitiesJSON, metadataJSON, source string
	var updatedAt sql.NullTime

	err := scan(&record.ID, &name, &record.Latitude, &record.Longitude,
		&facilitiesJSON, &source, &record.Verified, &metadataJSON, &updatedAt)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		record.Name = &name.String
	}
	record.Source = domain.Source(source)
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time
	}

	var metadata struct {
		Confidence float64 `json:"confidence"`
		Access     string  `json:"access"`
		Gender     string  `json:"gender"`
		Operator   *string `json:"operator"`
	}
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	record.Confidence = metadata.Confidence
	record.Access = domain.ParseAccess(metadata.Access)
	record.Gender = domain.ParseGender(metadata.Gender)
	record.Operator = metadata.Operator

	// Wheelchair accessibility lives in the facilities list.
	var facilities []string
	if err := json.Unmarshal([]byte(facilitiesJSON), &facilities); err != nil {
		return nil, fmt.Errorf("unmarshalling facilities: %w", err)
	}
	record.Wheelchair = domain.WheelchairUnknown
	for _, f := range facilities {
		if f == "wheelchair_accessible" {
			record.Wheelchair = domain.WheelchairYes
			break
		}
	}

	return &record, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
