// internal/app/store/identityctx/context.go
package identityctx

// A Context is a unit of work over the users and roles collections.
//
// Each Set keeps an identity map: while a document is tracked, Find of its
// id returns the tracked instance, so every caller sharing the Context sees
// the same pointer. Documents become tracked through Add, Attach, Update,
// Remove or Track, and stay tracked after a successful SaveChanges. Where,
// In and All always return stored, detached documents.
//
// Writes are staged and applied together by SaveChanges. Update and Remove
// compare the concurrency stamp the document had when it was first
// attached (or last saved) against the stored one; a mismatch fails the
// whole batch with ErrConcurrencyConflict.
//
// A Context is safe for concurrent use, but tracked documents and staged
// changes are shared, so concurrent callers normally use one Context each.
// Long-lived owners call Clear between units of work.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/identitymongo/internal/domain/models"
	"go.uber.org/zap"
)

// StampField is the document field used for optimistic concurrency.
const StampField = "concurrency_stamp"

// ErrConcurrencyConflict is returned by SaveChanges when an update or
// delete targets a document whose stored stamp no longer matches.
var ErrConcurrencyConflict = errors.New("identityctx: concurrency stamp mismatch")

// Runner executes a batch of writes, atomically where the backend can.
type Runner func(ctx context.Context, fn func(ctx context.Context) error) error

// Context stages writes to users and roles and saves them as one batch.
type Context[K comparable] struct {
	users *Set[models.User[K], K]
	roles *Set[models.Role[K], K]
	run   Runner
	log   *zap.Logger

	mu sync.Mutex // serializes SaveChanges
}

func newContext[K comparable](users Collection[models.User[K], K], roles Collection[models.Role[K], K], run Runner, logger *zap.Logger) *Context[K] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context[K]{
		users: newSet("users", users,
			func(u *models.User[K]) K { return u.ID },
			func(u *models.User[K]) string { return u.ConcurrencyStamp }),
		roles: newSet("roles", roles,
			func(r *models.Role[K]) K { return r.ID },
			func(r *models.Role[K]) string { return r.ConcurrencyStamp }),
		run: run,
		log: logger,
	}
}

// Users is the queryable set of user documents.
func (c *Context[K]) Users() *Set[models.User[K], K] { return c.users }

// Roles is the queryable set of role documents.
func (c *Context[K]) Roles() *Set[models.Role[K], K] { return c.roles }

// HasChanges reports whether any write is staged.
func (c *Context[K]) HasChanges() bool {
	return c.users.hasChanges() || c.roles.hasChanges()
}

// Clear stops tracking every document and discards staged writes.
func (c *Context[K]) Clear() {
	c.users.clear()
	c.roles.clear()
}

// SaveChanges applies every staged write and returns how many documents
// were written. On success inserted and replaced documents stay tracked
// with their new stamps and deleted ones are released. On failure every
// staged document is released; callers reload and retry.
func (c *Context[K]) SaveChanges(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ops := append(c.roles.drain(), c.users.drain()...)
	if len(ops) == 0 {
		return 0, nil
	}

	err := c.run(ctx, func(ctx context.Context) error {
		for _, o := range ops {
			if err := o.apply(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	for _, o := range ops {
		o.settle(err == nil)
	}
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			c.log.Warn("save changes rejected", zap.Int("ops", len(ops)), zap.Error(err))
		} else {
			c.log.Error("save changes failed", zap.Int("ops", len(ops)), zap.Error(err))
		}
		return 0, err
	}

	c.log.Debug("changes saved", zap.Int("ops", len(ops)))
	return len(ops), nil
}

type state int

const (
	unchanged state = iota
	added
	modified
	deleted
)

func (s state) String() string {
	switch s {
	case added:
		return "insert"
	case modified:
		return "replace"
	case deleted:
		return "delete"
	default:
		return "none"
	}
}

type entry[T any] struct {
	doc      *T
	state    state
	original string
}

type op struct {
	apply  func(ctx context.Context) error
	settle func(saved bool)
}

// Set is a queryable view of one collection plus its tracked documents.
type Set[T any, K comparable] struct {
	name    string
	coll    Collection[T, K]
	idOf    func(*T) K
	stampOf func(*T) string

	mu      sync.Mutex
	entries map[K]*entry[T]
	order   []K
}

func newSet[T any, K comparable](name string, coll Collection[T, K], idOf func(*T) K, stampOf func(*T) string) *Set[T, K] {
	return &Set[T, K]{
		name:    name,
		coll:    coll,
		idOf:    idOf,
		stampOf: stampOf,
		entries: map[K]*entry[T]{},
	}
}

// Find returns the tracked document with id if there is one, otherwise it
// loads a detached copy. It returns nil if the document does not exist or
// is staged for deletion.
func (s *Set[T, K]) Find(ctx context.Context, id K) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	e, ok := s.entries[id]
	var doc *T
	if ok && e.state != deleted {
		doc = e.doc
	}
	s.mu.Unlock()
	if ok {
		return doc, nil
	}
	return s.coll.FindID(ctx, id)
}

// Where loads documents whose field equals value. For array fields a
// document matches when any element equals value. limit <= 0 means all.
func (s *Set[T, K]) Where(ctx context.Context, field string, value any, limit int64) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.coll.FindEq(ctx, field, value, limit)
}

// In loads documents whose field equals any of values.
func (s *Set[T, K]) In(ctx context.Context, field string, values []K) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return s.coll.FindIn(ctx, field, values)
}

// All loads the whole collection into memory.
func (s *Set[T, K]) All(ctx context.Context) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.coll.FindAll(ctx)
}

// Count returns the number of stored documents.
func (s *Set[T, K]) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.coll.Count(ctx)
}

// Track returns the instance already tracked under doc's id, or attaches
// doc and returns it. It returns nil when that id is staged for deletion.
func (s *Set[T, K]) Track(doc *T) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[s.idOf(doc)]; ok {
		if e.state == deleted {
			return nil
		}
		return e.doc
	}
	return s.attachLocked(doc).doc
}

// Add stages an insert. The document's id must be set.
func (s *Set[T, K]) Add(doc *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.attachLocked(doc)
	switch e.state {
	case unchanged:
		e.state = added
	case deleted:
		e.state = modified
	}
}

// Attach starts tracking doc without staging a write, capturing its
// current stamp as the version to compare against on save. Attaching a
// different instance with a tracked id makes it the tracked one.
func (s *Set[T, K]) Attach(doc *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachLocked(doc)
}

// Update stages a full-document replace.
func (s *Set[T, K]) Update(doc *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.attachLocked(doc)
	if e.state == unchanged || e.state == deleted {
		e.state = modified
	}
}

// Remove stages a delete. Removing a document that was only added in this
// unit of work cancels the insert.
func (s *Set[T, K]) Remove(doc *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.attachLocked(doc)
	if e.state == added {
		s.detachLocked(s.idOf(doc))
		return
	}
	e.state = deleted
}

func (s *Set[T, K]) attachLocked(doc *T) *entry[T] {
	id := s.idOf(doc)
	if e, ok := s.entries[id]; ok {
		if e.doc != doc {
			e.doc = doc
			if e.state == unchanged {
				e.original = s.stampOf(doc)
			}
		}
		return e
	}
	e := &entry[T]{doc: doc, state: unchanged, original: s.stampOf(doc)}
	s.entries[id] = e
	s.order = append(s.order, id)
	return e
}

func (s *Set[T, K]) detachLocked(id K) {
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Set[T, K]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[K]*entry[T]{}
	s.order = nil
}

func (s *Set[T, K]) hasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.state != unchanged {
			return true
		}
	}
	return false
}

// drain turns staged entries into ops. Entries stay tracked until each
// op is settled.
func (s *Set[T, K]) drain() []op {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ops []op
	for _, id := range s.order {
		e := s.entries[id]
		if e.state == unchanged {
			continue
		}
		ops = append(ops, s.opFor(id, e))
	}
	return ops
}

func (s *Set[T, K]) opFor(id K, e *entry[T]) op {
	doc, st, original := e.doc, e.state, e.original
	apply := func(ctx context.Context) error {
		switch st {
		case added:
			if err := s.coll.Insert(ctx, doc); err != nil {
				return err
			}
		case modified:
			ok, err := s.coll.Replace(ctx, id, original, doc)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %s %v: %w", s.name, st, id, ErrConcurrencyConflict)
			}
		case deleted:
			ok, err := s.coll.Delete(ctx, id, original)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %s %v: %w", s.name, st, id, ErrConcurrencyConflict)
			}
		}
		return nil
	}
	return op{apply: apply, settle: func(saved bool) { s.settle(id, e, doc, st, saved) }}
}

// settle records the outcome of a saved op. An entry restaged while the
// batch ran is left alone.
func (s *Set[T, K]) settle(id K, e *entry[T], doc *T, st state, saved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[id] != e || e.doc != doc || e.state != st {
		return
	}
	if !saved || st == deleted {
		s.detachLocked(id)
		return
	}
	e.state = unchanged
	e.original = s.stampOf(doc)
}
