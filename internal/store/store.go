// Package store defines the backing document store interface and its
// implementations. A store holds named collections of schemaless
// documents; the natural key of a document is whatever field the caller
// indexes, not a store-internal identifier.
package store

import (
	"context"
	"errors"
)

// Document is a single schemaless record.
type Document = map[string]any

// MatchOp selects how a filter value is compared against a field.
type MatchOp int

const (
	// OpEq matches the field value exactly.
	OpEq MatchOp = iota
	// OpContains matches when the field (or any element of a list
	// field) contains the value, case-insensitively.
	OpContains
	// OpPrefix matches when the field value starts with the value.
	// Used by the ID allocator to scope a kind's ID range.
	OpPrefix
)

// Match is a single field condition.
type Match struct {
	Op    MatchOp
	Value string
}

// Filter maps field names to conditions. All conditions must hold.
// An empty or nil filter matches every document.
type Filter map[string]Match

// Eq builds an exact-match condition.
func Eq(v string) Match { return Match{Op: OpEq, Value: v} }

// Contains builds a case-insensitive substring condition.
func Contains(v string) Match { return Match{Op: OpContains, Value: v} }

// Prefix builds a prefix condition.
func Prefix(v string) Match { return Match{Op: OpPrefix, Value: v} }

// FindOptions controls ordering and windowing of Find results.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Skip      int64
	Limit     int64
}

var (
	// ErrNoDocuments reports that a single-document operation matched
	// nothing. A legitimate outcome, not a store failure.
	ErrNoDocuments = errors.New("store: no documents in result")

	// ErrDuplicateKey reports a unique-index violation on insert.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Store is the interface all backing stores implement.
type Store interface {
	// InsertOne adds a document to a collection. Returns
	// ErrDuplicateKey when a unique index rejects it.
	InsertOne(ctx context.Context, collection string, doc Document) error

	// Find returns documents matching the filter, honoring sort, skip
	// and limit. A zero Limit means no limit.
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)

	// FindOne returns the first document matching the filter, or
	// ErrNoDocuments.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)

	// FindOneAndUpdate merges the given fields into the first matching
	// document and returns its state after the update, or
	// ErrNoDocuments. Fields absent from set are left untouched.
	FindOneAndUpdate(ctx context.Context, collection string, filter Filter, set Document) (Document, error)

	// FindOneAndDelete removes the first matching document and returns
	// its state before removal, or ErrNoDocuments.
	FindOneAndDelete(ctx context.Context, collection string, filter Filter) (Document, error)

	// Count returns the number of documents matching the filter.
	Count(ctx context.Context, collection string, filter Filter) (int64, error)

	// EnsureUniqueIndex makes inserts that repeat an existing value of
	// field fail with ErrDuplicateKey. Idempotent.
	EnsureUniqueIndex(ctx context.Context, collection, field string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
