package metadatastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/network"
)

// SQLiteStore provides SQLite-based persistence for build records and networks
type SQLiteStore struct {
	db *sql.DB
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Format: file:path?param=value
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", apperrors.ErrIO, err)
	}

	// Writes are serialized by SQLite anyway
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to database: %v", apperrors.ErrIO, err)
	}

	store := &SQLiteStore{db: db}

	// In-memory databases report "memory" or "delete"
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		db.Close()
		return nil, fmt.Errorf("unexpected journal mode: got %s", journalMode)
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY.
// This sits on top of the busy_timeout pragma.
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") {
			// 10ms, 20ms, 40ms, 80ms, 160ms
			backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
			time.Sleep(backoff)
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

// initSchema creates the database schema if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		organism TEXT NOT NULL,
		source_version TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_builds_name ON builds(name);

	CREATE TABLE IF NOT EXISTS networks (
		build_id TEXT PRIMARY KEY,
		network BLOB NOT NULL,
		FOREIGN KEY (build_id) REFERENCES builds(id) ON DELETE CASCADE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveBuild stores a build record and its network in one transaction.
// A record without an id gets a new uuid; timestamps are filled in.
func (s *SQLiteStore) SaveBuild(record *models.BuildRecord, n *models.Network) error {
	if record == nil || n == nil {
		return fmt.Errorf("%w: build record and network are required", apperrors.ErrSchema)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	blob, err := network.Marshal(n)
	if err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal build record: %w", err)
	}

	return s.retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO builds (id, name, organism, source_version, status, created_at, updated_at, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			record.Name,
			record.Organism,
			record.SourceVersion,
			record.Status,
			record.CreatedAt,
			record.UpdatedAt,
			string(data),
		)
		if err != nil {
			return fmt.Errorf("failed to save build: %w", err)
		}

		_, err = tx.Exec(`INSERT OR REPLACE INTO networks (build_id, network) VALUES (?, ?)`, record.ID, blob)
		if err != nil {
			return fmt.Errorf("failed to save network: %w", err)
		}
		return tx.Commit()
	}, 5)
}

// GetBuild retrieves a build record by ID
func (s *SQLiteStore) GetBuild(id string) (*models.BuildRecord, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM builds WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: build %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}

	var record models.BuildRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build: %w", err)
	}
	return &record, nil
}

// GetBuildNetwork loads the network stored for a build
func (s *SQLiteStore) GetBuildNetwork(id string) (*models.Network, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT network FROM networks WHERE build_id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: network for build %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get network: %w", err)
	}
	return network.Unmarshal(blob)
}

// ListBuilds lists all build records, newest first
func (s *SQLiteStore) ListBuilds() ([]*models.BuildRecord, error) {
	rows, err := s.db.Query(`SELECT data FROM builds ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	records := make([]*models.BuildRecord, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}

		var record models.BuildRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}

		records = append(records, &record)
	}
	return records, rows.Err()
}

// DeleteBuild deletes a build record and its network
func (s *SQLiteStore) DeleteBuild(id string) error {
	return s.retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM networks WHERE build_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete network: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM builds WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete build: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: build %s", apperrors.ErrNotFound, id)
		}
		return tx.Commit()
	}, 5)
}
