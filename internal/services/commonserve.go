// Package services holds the generic document service ("Commonserve"):
// CRUD, listing and filter+pagination over any document kind, plus the
// per-kind sequential ID allocator. Operations never return a Go error
// across the boundary; every outcome is a Result envelope.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"userserve/internal/store"
)

// Kind describes a document kind: the collection it lives in, the
// three-letter uppercase prefix stamped on its allocated IDs ("USR" for
// User) and the name its natural-key field derives from.
type Kind struct {
	Name       string
	Collection string
	Prefix     string
}

// IDField returns the natural-key field name. "User" -> "userId".
func (k Kind) IDField() string {
	return strings.ToLower(k.Name) + "Id"
}

const (
	idSeqWidth = 5
	idSeqMax   = 99999

	// Attempts per Add when the store rejects an allocated ID as a
	// duplicate (another writer won the race).
	maxInsertAttempts = 3
)

// PageInfo carries pagination metadata derived from the total filtered
// count, not from the returned page's size.
type PageInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Result is the uniform service envelope. Success=false implies Err is
// set and Data is absent; a not-found lookup is Success=true with nil
// Data, which callers must treat as distinct from a store failure.
type Result struct {
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Err        string    `json:"error,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
}

func okResult(data any) Result    { return Result{Success: true, Data: data} }
func failResult(err error) Result { return Result{Success: false, Err: err.Error()} }

// Commonserve provides CRUD over an injected store handle.
type Commonserve struct {
	store store.Store
	log   *zap.Logger

	mu        sync.Mutex
	kindLocks map[string]*sync.Mutex
}

func NewCommonserve(st store.Store, log *zap.Logger) *Commonserve {
	return &Commonserve{
		store:     st,
		log:       log,
		kindLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the allocation lock for a kind. Allocate+insert is a
// read-then-write sequence; serializing it per kind keeps concurrent
// Adds in this process from computing the same next number. The store's
// unique index on the ID field backstops writers in other processes.
func (s *Commonserve) lockFor(kind Kind) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.kindLocks[kind.Name]
	if !ok {
		l = &sync.Mutex{}
		s.kindLocks[kind.Name] = l
	}
	return l
}

// NextID allocates the next sequential ID for a kind: prefix plus a
// zero-padded sequence number (USR00001). The fixed width makes
// lexicographic order equal numeric order, so the store's descending
// sort on the ID field yields the highest allocated number.
func (s *Commonserve) NextID(ctx context.Context, kind Kind) (string, error) {
	docs, err := s.store.Find(ctx, kind.Collection,
		store.Filter{kind.IDField(): store.Prefix(kind.Prefix)},
		store.FindOptions{SortField: kind.IDField(), SortDesc: true, Limit: 1},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate unique ID for %s: %w", kind.Name, err)
	}

	next := 1
	if len(docs) > 0 {
		last, _ := docs[0][kind.IDField()].(string)
		if len(last) > len(kind.Prefix) {
			n, err := strconv.Atoi(last[len(kind.Prefix):])
			if err != nil {
				return "", fmt.Errorf("malformed %s ID %q: %w", kind.Name, last, err)
			}
			next = n + 1
		}
	}

	if next > idSeqMax {
		return "", fmt.Errorf("ID space exhausted for %s: sequence %d exceeds %d", kind.Name, next, idSeqMax)
	}
	return fmt.Sprintf("%s%0*d", kind.Prefix, idSeqWidth, next), nil
}

// Add allocates an ID, merges it into data under the kind's ID field
// and inserts the document. A duplicate-key rejection means a
// concurrent writer used the same number; allocation is retried with a
// fresh read before giving up.
func (s *Commonserve) Add(ctx context.Context, kind Kind, data store.Document) Result {
	lock := s.lockFor(kind)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		id, err := s.NextID(ctx, kind)
		if err != nil {
			return failResult(err)
		}

		doc := make(store.Document, len(data)+1)
		for k, v := range data {
			doc[k] = v
		}
		doc[kind.IDField()] = id

		err = s.store.InsertOne(ctx, kind.Collection, doc)
		if err == nil {
			return okResult(doc)
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return failResult(err)
		}
		lastErr = err
		s.log.Warn("duplicate ID on insert, reallocating",
			zap.String("kind", kind.Name),
			zap.String("id", id),
			zap.Int("attempt", attempt),
		)
	}
	return failResult(fmt.Errorf("failed to insert %s after %d attempts: %w", kind.Name, maxInsertAttempts, lastErr))
}

// GetAll returns every document of the kind. An empty collection is a
// success with an empty slice, never a failure.
func (s *Commonserve) GetAll(ctx context.Context, kind Kind) Result {
	docs, err := s.store.Find(ctx, kind.Collection, nil, store.FindOptions{})
	if err != nil {
		return failResult(err)
	}
	return okResult(docs)
}

// GetByID looks a document up by its natural ID field. Absence yields
// Success=true with nil Data.
func (s *Commonserve) GetByID(ctx context.Context, kind Kind, id string) Result {
	doc, err := s.store.FindOne(ctx, kind.Collection, store.Filter{kind.IDField(): store.Eq(id)})
	if errors.Is(err, store.ErrNoDocuments) {
		return Result{Success: true, Data: nil}
	}
	if err != nil {
		return failResult(err)
	}
	return okResult(doc)
}

// UpdateByID merges the supplied fields into the matching document and
// returns its post-update state, or nil Data when no document matches.
// The natural ID field is never patched; allocated IDs are immutable.
func (s *Commonserve) UpdateByID(ctx context.Context, kind Kind, id string, data store.Document) Result {
	set := make(store.Document, len(data))
	for k, v := range data {
		if k == kind.IDField() {
			continue
		}
		set[k] = v
	}

	// An empty patch is a no-op read; mongo rejects an empty $set.
	if len(set) == 0 {
		return s.GetByID(ctx, kind, id)
	}

	doc, err := s.store.FindOneAndUpdate(ctx, kind.Collection, store.Filter{kind.IDField(): store.Eq(id)}, set)
	if errors.Is(err, store.ErrNoDocuments) {
		return Result{Success: true, Data: nil}
	}
	if err != nil {
		return failResult(err)
	}
	return okResult(doc)
}

// DeleteByID removes the matching document and returns its pre-removal
// state, or nil Data when no document matches. IDs of deleted documents
// are never reassigned; the allocator only moves forward.
func (s *Commonserve) DeleteByID(ctx context.Context, kind Kind, id string) Result {
	doc, err := s.store.FindOneAndDelete(ctx, kind.Collection, store.Filter{kind.IDField(): store.Eq(id)})
	if errors.Is(err, store.ErrNoDocuments) {
		return Result{Success: true, Data: nil}
	}
	if err != nil {
		return failResult(err)
	}
	return okResult(doc)
}

// GetAllWithFilter returns one page of documents matching the filter,
// with pagination metadata computed from the total match count.
func (s *Commonserve) GetAllWithFilter(ctx context.Context, kind Kind, filter store.Filter, page, limit int) Result {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	docs, err := s.store.Find(ctx, kind.Collection, filter, store.FindOptions{
		Skip:  int64(page-1) * int64(limit),
		Limit: int64(limit),
	})
	if err != nil {
		return failResult(err)
	}

	totalCount, err := s.store.Count(ctx, kind.Collection, filter)
	if err != nil {
		return failResult(err)
	}

	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))
	return Result{
		Success: true,
		Data:    docs,
		Pagination: &PageInfo{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  totalCount,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	}
}
