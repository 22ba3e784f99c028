package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// SQLite is a ledger stored in an SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ address.Ledger = (*SQLite)(nil)

// NewSQLite opens or creates the ledger database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" would get its own database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS used_addresses (
		network TEXT NOT NULL,
		address INTEGER NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (network, address)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AvailableAddresses implements address.Ledger.
func (s *SQLite) AvailableAddresses(ctx context.Context, network mesh.Network) ([]uint16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT address FROM used_addresses WHERE network = ?`, network.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	used := make(map[uint16]struct{})
	for rows.Next() {
		var a int
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		used[uint16(a)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return address.Free(used), nil
}

// RecordUsed implements address.Ledger.
func (s *SQLite) RecordUsed(ctx context.Context, network mesh.Network, addrs ...uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var added []uint16
	for _, a := range addrs {
		if !mesh.IsDeviceAddress(a) {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO used_addresses (network, address) VALUES (?, ?)`,
			network.Name, int(a))
		if err != nil {
			return nil, fmt.Errorf("failed to record address %d: %w", a, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			added = append(added, a)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return added, nil
}

// Forget drops every address recorded for network.
func (s *SQLite) Forget(ctx context.Context, network mesh.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM used_addresses WHERE network = ?`, network.Name)
	if err != nil {
		return fmt.Errorf("failed to forget network: %w", err)
	}
	return nil
}
