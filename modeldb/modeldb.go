// Package modeldb maintains a SQLite-backed manifest of per-taxon network
// references keyed by taxonomic rank. A manifest stores no network payloads,
// only references resolvable through a stoich.Loader; Lookup joins an input
// taxonomy against the manifest and reports how much of the community it
// could cover.
package modeldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/logging"
)

// Sentinel errors for manifest access.
var (
	// ErrBadRank indicates a rank outside the recognized taxonomy ranks.
	ErrBadRank = errors.New("modeldb: unknown taxonomic rank")

	// ErrBadRecord indicates an Add with missing fields.
	ErrBadRecord = errors.New("modeldb: record is missing rank, name or ref")

	// ErrNoMatches indicates a Lookup that matched no taxon at all.
	ErrNoMatches = errors.New("modeldb: no taxa matched the manifest")
)

// Ranks lists the recognized taxonomic ranks, most to least specific.
var Ranks = []string{"strain", "species", "genus", "family", "order", "class", "phylum", "kingdom"}

// lowCoverage is the matched-abundance fraction below which Lookup warns.
const lowCoverage = 0.5

// Record is one manifest row: a network reference filed under a taxon name
// at one rank.
type Record struct {
	Rank string
	Name string
	Ref  string
}

// DB is an open manifest.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS manifest (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	rank TEXT NOT NULL,
	name TEXT NOT NULL,
	ref  TEXT NOT NULL,
	UNIQUE (rank, name, ref)
);
CREATE INDEX IF NOT EXISTS manifest_rank_name ON manifest (rank, name);
`

// Open opens (creating if needed) a manifest at path. ":memory:" gives an
// ephemeral manifest.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("modeldb: open %s: %w", path, err)
	}
	// A second pooled connection to ":memory:" would open a different
	// database; manifests are small, one connection serves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("modeldb: init schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error { return d.db.Close() }

// validRank reports whether rank is one of Ranks.
func validRank(rank string) bool {
	for _, r := range Ranks {
		if r == rank {
			return true
		}
	}

	return false
}

// normalizeName canonicalizes a taxon name for matching: lowercase, trimmed,
// rank prefixes like "g__" stripped, inner whitespace collapsed to "_".
func normalizeName(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	if len(s) > 3 && s[1] == '_' && s[2] == '_' {
		s = s[3:]
	}

	return strings.Join(strings.Fields(s), "_")
}

// Add files one record. Duplicate (rank, name, ref) triples are ignored.
func (d *DB) Add(rec Record) error {
	rec.Rank = strings.ToLower(strings.TrimSpace(rec.Rank))
	rec.Name = normalizeName(rec.Name)
	if rec.Rank == "" || rec.Name == "" || rec.Ref == "" {
		return ErrBadRecord
	}
	if !validRank(rec.Rank) {
		return fmt.Errorf("%w: %s", ErrBadRank, rec.Rank)
	}
	_, err := d.db.Exec(
		"INSERT OR IGNORE INTO manifest (rank, name, ref) VALUES (?, ?, ?)",
		rec.Rank, rec.Name, rec.Ref,
	)
	if err != nil {
		return fmt.Errorf("modeldb: add %s/%s: %w", rec.Rank, rec.Name, err)
	}

	return nil
}

// Records returns every record filed at one rank, ordered by name.
func (d *DB) Records(rank string) ([]Record, error) {
	if !validRank(rank) {
		return nil, fmt.Errorf("%w: %s", ErrBadRank, rank)
	}
	rows, err := d.db.Query("SELECT rank, name, ref FROM manifest WHERE rank = ? ORDER BY name, ref", rank)
	if err != nil {
		return nil, fmt.Errorf("modeldb: query rank %s: %w", rank, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Rank, &r.Name, &r.Ref); err != nil {
			return nil, fmt.Errorf("modeldb: scan: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// refs returns every reference filed under (rank, name).
func (d *DB) refs(rank, name string) ([]string, error) {
	rows, err := d.db.Query("SELECT ref FROM manifest WHERE rank = ? AND name = ? ORDER BY ref", rank, name)
	if err != nil {
		return nil, fmt.Errorf("modeldb: query %s/%s: %w", rank, name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("modeldb: scan: %w", err)
		}
		out = append(out, ref)
	}

	return out, rows.Err()
}

// Query is one input taxon to match against the manifest: an output ID, its
// relative abundance, and its known names per rank.
type Query struct {
	ID        string
	Abundance float64
	Lineage   map[string]string
}

// Match is the outcome of joining a taxonomy against the manifest.
type Match struct {
	// Taxa carries the matched entries with Refs filled in, ready for
	// community assembly.
	Taxa []community.Taxon

	// Unmatched lists the query IDs with no manifest entry at the rank.
	Unmatched []string

	// AbundanceFraction is the input abundance share the matched taxa cover.
	AbundanceFraction float64
}

// Lookup joins queries against the manifest at one rank. Taxa whose name at
// the rank has manifest entries get all filed refs (multiple refs are joined
// into one network during community assembly). A matched-abundance share
// below 50% is logged as a warning; zero matches is an error.
func (d *DB) Lookup(rank string, queries []Query) (*Match, error) {
	rank = strings.ToLower(strings.TrimSpace(rank))
	if !validRank(rank) {
		return nil, fmt.Errorf("%w: %s", ErrBadRank, rank)
	}

	m := &Match{}
	total, matched := 0.0, 0.0
	for _, q := range queries {
		total += q.Abundance
		name := normalizeName(q.Lineage[rank])
		if name == "" {
			m.Unmatched = append(m.Unmatched, q.ID)

			continue
		}
		refs, err := d.refs(rank, name)
		if err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			m.Unmatched = append(m.Unmatched, q.ID)

			continue
		}
		matched += q.Abundance
		m.Taxa = append(m.Taxa, community.Taxon{ID: q.ID, Abundance: q.Abundance, Refs: refs})
	}
	if len(m.Taxa) == 0 {
		return nil, fmt.Errorf("%w at rank %s", ErrNoMatches, rank)
	}
	if total > 0 {
		m.AbundanceFraction = matched / total
	}
	if m.AbundanceFraction < lowCoverage {
		logging.L().Warn().
			Str("rank", rank).
			Float64("fraction", m.AbundanceFraction).
			Int("unmatched", len(m.Unmatched)).
			Msg("manifest covers less than half of the community abundance")
	}

	return m, nil
}
