// Package database provides an in-memory database of near-Earth objects
// and their close approaches.
//
// The database links the two datasets at construction time: every close
// approach is connected to the NEO it references by primary designation,
// and every NEO holds the collection of its own approaches. Lookups by
// designation and by name are backed by maps built once in New.
package database

import (
	"iter"

	"log/slog"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
	"github.com/seulgie/asteroid-data-processor/internal/query"
	"github.com/seulgie/asteroid-data-processor/pkg/neo"
)

// NEODatabase holds the linked NEO and close approach datasets.
type NEODatabase struct {
	neos       []*neo.NearEarthObject
	approaches []*neo.CloseApproach

	byDesignation map[string]*neo.NearEarthObject
	byName        map[string]*neo.NearEarthObject
}

// New creates a database from the loaded datasets and links them.
//
// Each close approach gains a reference to the NEO matching its
// designation, and each NEO gains the collection of approaches that
// reference it. Approaches whose designation matches no NEO stay in the
// database unlinked; filters that need NEO attributes treat them as
// non-matching.
func New(neos []*neo.NearEarthObject, approaches []*neo.CloseApproach) *NEODatabase {
	db := &NEODatabase{
		neos:          neos,
		approaches:    approaches,
		byDesignation: make(map[string]*neo.NearEarthObject, len(neos)),
		byName:        make(map[string]*neo.NearEarthObject),
	}

	for _, n := range neos {
		db.byDesignation[n.Designation] = n
		if n.Name != "" {
			db.byName[n.Name] = n
		}
	}

	unlinked := 0
	for _, ca := range approaches {
		n, ok := db.byDesignation[ca.Designation]
		if !ok {
			unlinked++
			continue
		}
		ca.NEO = n
		n.Approaches = append(n.Approaches, ca)
	}

	if unlinked > 0 {
		logger.Warn("approaches reference unknown designations",
			slog.Int("count", unlinked),
		)
	}

	logger.Debug("database linked",
		slog.Int("neos", len(neos)),
		slog.Int("approaches", len(approaches)),
	)

	return db
}

// GetByDesignation finds the NEO with the given primary designation.
// Returns a lookup error wrapping ErrNotFound when no NEO matches.
func (db *NEODatabase) GetByDesignation(designation string) (*neo.NearEarthObject, error) {
	n, ok := db.byDesignation[designation]
	if !ok {
		return nil, newLookupError("get_by_designation", "designation", designation)
	}
	return n, nil
}

// GetByName finds the NEO with the given IAU name. Names are matched
// exactly; NEOs without a name are never returned.
func (db *NEODatabase) GetByName(name string) (*neo.NearEarthObject, error) {
	if name == "" {
		return nil, newLookupError("get_by_name", "name", name)
	}
	n, ok := db.byName[name]
	if !ok {
		return nil, newLookupError("get_by_name", "name", name)
	}
	return n, nil
}

// Approaches returns the close approaches in dataset order as a lazy
// sequence.
func (db *NEODatabase) Approaches() iter.Seq[*neo.CloseApproach] {
	return query.Slice(db.approaches)
}

// NEOs returns all near-Earth objects in dataset order.
func (db *NEODatabase) NEOs() []*neo.NearEarthObject {
	return db.neos
}

// Query streams the close approaches matching every filter, preserving
// dataset order. With no filters all approaches are produced. The
// returned sequence is lazy: approaches are examined only as the caller
// consumes them.
func (db *NEODatabase) Query(filters []query.Filter) iter.Seq[*neo.CloseApproach] {
	return query.Apply(db.Approaches(), filters)
}

// NEOCount returns the number of NEOs in the database.
func (db *NEODatabase) NEOCount() int {
	return len(db.neos)
}

// ApproachCount returns the number of close approaches in the database.
func (db *NEODatabase) ApproachCount() int {
	return len(db.approaches)
}
