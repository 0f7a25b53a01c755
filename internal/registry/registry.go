// Package registry keeps a durable record of validated packages in SQLite.
//
// The registry backs two workflows: the dependency-sanity check (a required
// package/version pair must name a previously validated package) and the
// cross-package composition pass, which needs the selector and storage
// surfaces of every package in the composition.
package registry

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"github.com/roach88/bmodel/internal/ontology"
	"github.com/roach88/bmodel/internal/totalize"
)

//go:embed schema.sql
var schemaSQL string

// Registry provides durable storage for validated-package records.
// Uses SQLite with WAL mode for concurrent read access.
type Registry struct {
	db *sql.DB
}

// Record is one validated package at one version.
type Record struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Fingerprint string   `json:"fingerprint"`
	Selectors   []string `json:"selectors"` // exported selectors at current
	Slots       []string `json:"slots"`     // cumulative layout at current
}

// Open creates or opens the registry database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// multiple times.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to registry: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Register records a validated package at its current version, replacing any
// previous record for the same (name, version) pair. Callers must only
// register models whose validation produced no diagnostics.
func (r *Registry) Register(t *totalize.Totalized) error {
	m := t.Model

	fingerprint, err := ontology.Fingerprint(m)
	if err != nil {
		return fmt.Errorf("fingerprinting %s: %w", m.Name, err)
	}

	selectors := exportedSelectors(t)
	selJSON, err := json.Marshal(selectors)
	if err != nil {
		return fmt.Errorf("encoding selectors: %w", err)
	}
	slotJSON, err := json.Marshal(t.Layout[m.Current])
	if err != nil {
		return fmt.Errorf("encoding slots: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO packages (name, version, fingerprint, selectors, slots)
		 VALUES (?, ?, ?, ?, ?)`,
		m.Name, m.Current.String(), fingerprint, string(selJSON), string(slotJSON),
	)
	if err != nil {
		return fmt.Errorf("registering %s %s: %w", m.Name, m.Current, err)
	}
	return nil
}

// HasPackage reports whether a package has been validated at the given
// version. Implements validator.DependencyResolver.
func (r *Registry) HasPackage(name string, version ontology.Version) (bool, error) {
	var one int
	err := r.db.QueryRow(
		`SELECT 1 FROM packages WHERE name = ? AND version = ?`,
		name, version.String(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up %s %s: %w", name, version, err)
	}
	return true, nil
}

// Packages returns every record, ordered by name then version.
func (r *Registry) Packages() (recs []Record, err error) {
	rows, err := r.db.Query(
		`SELECT name, version, fingerprint, selectors, slots
		 FROM packages ORDER BY name, version`)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	for rows.Next() {
		var rec Record
		var selJSON, slotJSON string
		if err := rows.Scan(&rec.Name, &rec.Version, &rec.Fingerprint, &selJSON, &slotJSON); err != nil {
			return nil, fmt.Errorf("scanning package row: %w", err)
		}
		if err := json.Unmarshal([]byte(selJSON), &rec.Selectors); err != nil {
			return nil, fmt.Errorf("decoding selectors for %s: %w", rec.Name, err)
		}
		if err := json.Unmarshal([]byte(slotJSON), &rec.Slots); err != nil {
			return nil, fmt.Errorf("decoding slots for %s: %w", rec.Name, err)
		}
		recs = append(recs, rec)
	}
	if rerr := rows.Err(); rerr != nil {
		return nil, fmt.Errorf("iterating packages: %w", rerr)
	}
	return recs, nil
}

// exportedSelectors collects the selectors of the functions exported at
// current, sorted and deduplicated.
func exportedSelectors(t *totalize.Totalized) []string {
	seen := make(map[string]bool)
	selectors := []string{}
	for _, fnID := range t.Exported[t.Model.Current] {
		fn, ok := t.Model.Functions[fnID]
		if !ok {
			continue
		}
		s := fn.Selector.String()
		if !seen[s] {
			seen[s] = true
			selectors = append(selectors, s)
		}
	}
	sort.Strings(selectors)
	return selectors
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
