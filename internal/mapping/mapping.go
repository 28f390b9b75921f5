// Package mapping holds the validated set of source-table to target-index
// mappings the river synchronizes.
package mapping

import (
	"fmt"
	"sort"
)

// Mapping is one (db, table) -> (index, type) configuration entry.
// It is immutable once built; the backfill flag recorded here is the
// configured starting value, the live value is owned by the worker.
type Mapping struct {
	Database string
	Table    string
	Index    string
	Type     string
	Backfill bool
}

func (m Mapping) String() string {
	s := fmt.Sprintf("Mapping(%s.%s", m.Database, m.Table)
	if m.Backfill {
		s += ",backfill"
	}
	if m.Index != m.Database {
		s += ",index=" + m.Index
	}
	if m.Type != m.Table {
		s += ",type=" + m.Type
	}
	return s + ")"
}

// Options are the per-table settings from the configuration document.
// Zero values fall back to the documented defaults: index defaults to the
// database name, type to the table name, backfill to true.
type Options struct {
	Backfill *bool  `yaml:"backfill"`
	Index    string `yaml:"index"`
	Type     string `yaml:"type"`
}

// Set is the registry of mappings, keyed by (db, table).
type Set struct {
	byKey map[key]Mapping
}

type key struct {
	db    string
	table string
}

// NewSet builds a Set from the nested databases section of the
// configuration document.
func NewSet(databases map[string]map[string]Options) (*Set, error) {
	s := &Set{byKey: make(map[key]Mapping)}
	for db, tables := range databases {
		if db == "" {
			return nil, fmt.Errorf("database name cannot be empty")
		}
		for table, opts := range tables {
			if table == "" {
				return nil, fmt.Errorf("table name cannot be empty in database %q", db)
			}
			m := Mapping{
				Database: db,
				Table:    table,
				Index:    opts.Index,
				Type:     opts.Type,
				Backfill: true,
			}
			if m.Index == "" {
				m.Index = db
			}
			if m.Type == "" {
				m.Type = table
			}
			if opts.Backfill != nil {
				m.Backfill = *opts.Backfill
			}
			s.byKey[key{db, table}] = m
		}
	}
	if len(s.byKey) == 0 {
		return nil, fmt.Errorf("no tables configured")
	}
	return s, nil
}

// Get returns the mapping for (db, table), if any.
func (s *Set) Get(db, table string) (Mapping, bool) {
	m, ok := s.byKey[key{db, table}]
	return m, ok
}

// All returns every mapping, ordered by database then table for stable
// iteration in logs and tests.
func (s *Set) All() []Mapping {
	out := make([]Mapping, 0, len(s.byKey))
	for _, m := range s.byKey {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Database != out[j].Database {
			return out[i].Database < out[j].Database
		}
		return out[i].Table < out[j].Table
	})
	return out
}

// Len returns the total number of mappings. It bounds the optimistic-retry
// budget used when workers contend for the shared progress document.
func (s *Set) Len() int {
	return len(s.byKey)
}
