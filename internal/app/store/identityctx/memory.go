// internal/app/store/identityctx/memory.go
package identityctx

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dalemusser/identitymongo/internal/app/system/bsonkeys"
	"github.com/dalemusser/identitymongo/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MemoryDB is an in-process document store. Documents are kept BSON
// encoded, so every read decodes an independent copy the way a round
// trip to MongoDB would. Batches from SaveChanges are all-or-nothing.
//
// Several Contexts may share one MemoryDB to stand in for separate
// processes talking to the same database.
type MemoryDB struct {
	txMu sync.Mutex // one batch at a time

	mu   sync.RWMutex
	data map[string]*memoryData
}

type memoryData struct {
	docs  map[string]bson.Raw
	order []string
}

// NewMemoryDB returns an empty store.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{data: map[string]*memoryData{}}
}

// NewMemory returns a Context persisting to db.
func NewMemory[K comparable](db *MemoryDB, opts Options, logger *zap.Logger) *Context[K] {
	if opts.UsersCollection == "" {
		opts.UsersCollection = DefaultUsersCollection
	}
	if opts.RolesCollection == "" {
		opts.RolesCollection = DefaultRolesCollection
	}
	return newContext[K](
		&memoryCollection[models.User[K], K]{db: db, name: opts.UsersCollection},
		&memoryCollection[models.Role[K], K]{db: db, name: opts.RolesCollection},
		db.run,
		logger,
	)
}

func (db *MemoryDB) run(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(ctx); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *MemoryDB) snapshot() map[string]*memoryData {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]*memoryData, len(db.data))
	for name, d := range db.data {
		docs := make(map[string]bson.Raw, len(d.docs))
		for k, v := range d.docs {
			docs[k] = v
		}
		out[name] = &memoryData{docs: docs, order: slices.Clone(d.order)}
	}
	return out
}

func (db *MemoryDB) restore(snap map[string]*memoryData) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data = snap
}

// collection returns the named data, creating it under the write lock.
func (db *MemoryDB) collection(name string) *memoryData {
	if d, ok := db.data[name]; ok {
		return d
	}
	d := &memoryData{docs: map[string]bson.Raw{}}
	db.data[name] = d
	return d
}

type memoryCollection[T any, K comparable] struct {
	db   *MemoryDB
	name string
}

func memKey(v any) (string, error) {
	rv, err := bsonkeys.MarshalValue(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02x:%x", byte(rv.Type), rv.Value), nil
}

func decode[T any](raw bson.Raw) (*T, error) {
	var doc T
	if err := bsonkeys.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func matches(rv bson.RawValue, wants []bson.RawValue) bool {
	for _, want := range wants {
		if rv.Equal(want) {
			return true
		}
	}
	if rv.Type != bsontype.Array {
		return false
	}
	elems, err := rv.Array().Values()
	if err != nil {
		return false
	}
	for _, el := range elems {
		for _, want := range wants {
			if el.Equal(want) {
				return true
			}
		}
	}
	return false
}

// scan decodes documents in insertion order that keep reports true for.
func (m *memoryCollection[T, K]) scan(keep func(bson.Raw) bool, limit int64) ([]*T, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()

	d, ok := m.db.data[m.name]
	if !ok {
		return nil, nil
	}
	var out []*T
	for _, k := range d.order {
		raw := d.docs[k]
		if !keep(raw) {
			continue
		}
		doc, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memoryCollection[T, K]) FindID(_ context.Context, id K) (*T, error) {
	key, err := memKey(id)
	if err != nil {
		return nil, err
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	d, ok := m.db.data[m.name]
	if !ok {
		return nil, nil
	}
	raw, ok := d.docs[key]
	if !ok {
		return nil, nil
	}
	return decode[T](raw)
}

func (m *memoryCollection[T, K]) FindEq(_ context.Context, field string, value any, limit int64) ([]*T, error) {
	want, err := bsonkeys.MarshalValue(value)
	if err != nil {
		return nil, err
	}
	return m.scan(func(raw bson.Raw) bool {
		rv, err := raw.LookupErr(field)
		return err == nil && matches(rv, []bson.RawValue{want})
	}, limit)
}

func (m *memoryCollection[T, K]) FindIn(_ context.Context, field string, values []K) ([]*T, error) {
	wants := make([]bson.RawValue, 0, len(values))
	for _, v := range values {
		rv, err := bsonkeys.MarshalValue(v)
		if err != nil {
			return nil, err
		}
		wants = append(wants, rv)
	}
	return m.scan(func(raw bson.Raw) bool {
		rv, err := raw.LookupErr(field)
		return err == nil && matches(rv, wants)
	}, 0)
}

func (m *memoryCollection[T, K]) FindAll(_ context.Context) ([]*T, error) {
	return m.scan(func(bson.Raw) bool { return true }, 0)
}

func (m *memoryCollection[T, K]) Count(_ context.Context) (int64, error) {
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	d, ok := m.db.data[m.name]
	if !ok {
		return 0, nil
	}
	return int64(len(d.docs)), nil
}

func (m *memoryCollection[T, K]) Insert(_ context.Context, doc *T) error {
	data, err := bsonkeys.Marshal(doc)
	if err != nil {
		return err
	}
	raw := bson.Raw(data)
	key, err := rawKey(raw)
	if err != nil {
		return err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	d := m.db.collection(m.name)
	if _, exists := d.docs[key]; exists {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
			Code:    11000,
			Message: "E11000 duplicate key error collection: " + m.name + " index: _id_",
		}}}
	}
	d.docs[key] = raw
	d.order = append(d.order, key)
	return nil
}

func (m *memoryCollection[T, K]) Replace(_ context.Context, id K, stamp string, doc *T) (bool, error) {
	key, err := memKey(id)
	if err != nil {
		return false, err
	}
	data, err := bsonkeys.Marshal(doc)
	if err != nil {
		return false, err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	d := m.db.collection(m.name)
	cur, ok := d.docs[key]
	if !ok || !stampIs(cur, stamp) {
		return false, nil
	}
	d.docs[key] = bson.Raw(data)
	return true, nil
}

func (m *memoryCollection[T, K]) Delete(_ context.Context, id K, stamp string) (bool, error) {
	key, err := memKey(id)
	if err != nil {
		return false, err
	}

	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	d := m.db.collection(m.name)
	cur, ok := d.docs[key]
	if !ok || !stampIs(cur, stamp) {
		return false, nil
	}
	delete(d.docs, key)
	d.order = slices.DeleteFunc(d.order, func(k string) bool { return k == key })
	return true, nil
}

func rawKey(raw bson.Raw) (string, error) {
	rv, err := raw.LookupErr("_id")
	if err != nil {
		return "", fmt.Errorf("identityctx: document has no _id: %w", err)
	}
	return fmt.Sprintf("%02x:%x", byte(rv.Type), rv.Value), nil
}

func stampIs(raw bson.Raw, stamp string) bool {
	rv, err := raw.LookupErr(StampField)
	if err != nil {
		return stamp == ""
	}
	s, ok := rv.StringValueOK()
	return ok && s == stamp
}
