package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/internal/models"
	"github.com/tourcraft/tourcraft/internal/relations"
	"github.com/tourcraft/tourcraft/pkg/logger"
	"github.com/tourcraft/tourcraft/pkg/metrics"
)

// UpdateObserver is notified after a successful update with the document
// before and after the merge.
type UpdateObserver func(ctx context.Context, schema entity.Schema, before, after entity.Record)

// RemoveObserver is notified after a successful remove with the removed
// document.
type RemoveObserver func(ctx context.Context, schema entity.Schema, removed entity.Record)

// DeleteGate decides whether a document may be removed and cleans up
// cascade-safe references afterwards.
type DeleteGate interface {
	CanDelete(ctx context.Context, collection, id string) (relations.Verdict, error)
	Cascade(ctx context.Context, collection, id string) (int, error)
}

// Accessor exposes uniform CRUD operations for one entity schema.
type Accessor struct {
	schema entity.Schema
	col    repository.Collection
	gate   DeleteGate
	now    func() time.Time
	newID  func() string

	mu        sync.RWMutex
	observers []UpdateObserver
	removers  []RemoveObserver
}

// Option customises an Accessor.
type Option func(*Accessor)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Accessor) { a.now = now }
}

// WithIDGenerator overrides id assignment on create.
func WithIDGenerator(gen func() string) Option {
	return func(a *Accessor) { a.newID = gen }
}

// New returns an accessor for schema backed by store. gate may be nil, in
// which case removes are not checked.
func New(schema entity.Schema, store repository.Store, gate DeleteGate, opts ...Option) *Accessor {
	a := &Accessor{
		schema: schema,
		col:    store.Collection(schema.Collection, schema.IDKey()),
		gate:   gate,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Schema returns the schema this accessor serves.
func (a *Accessor) Schema() entity.Schema { return a.schema }

// Observe registers an update observer.
func (a *Accessor) Observe(o UpdateObserver) {
	a.mu.Lock()
	a.observers = append(a.observers, o)
	a.mu.Unlock()
}

// OnRemove registers a remove observer.
func (a *Accessor) OnRemove(o RemoveObserver) {
	a.mu.Lock()
	a.removers = append(a.removers, o)
	a.mu.Unlock()
}

// Get returns the document with id, or nil when it does not exist.
func (a *Accessor) Get(ctx context.Context, id string) (entity.Record, error) {
	rec, err := a.col.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		a.record("get", "miss")
		return nil, nil
	}
	if err != nil {
		return nil, a.fail("get", err)
	}
	a.record("get", "ok")
	return rec, nil
}

// List returns the documents matching q in store order unless q.SortBy is set.
func (a *Accessor) List(ctx context.Context, q repository.Query) ([]entity.Record, error) {
	list, err := a.col.Find(ctx, q)
	if err != nil {
		return nil, a.fail("list", err)
	}
	a.record("list", "ok")
	return list, nil
}

// Create stores data as a new document and returns its id. Schema defaults
// fill absent fields.
func (a *Accessor) Create(ctx context.Context, data entity.Record) (string, error) {
	rec := entity.Record{}
	for _, f := range a.schema.Fields {
		if f.Default != nil {
			rec[f.Name] = f.Default
		}
	}
	for k, v := range stripProtected(data, a.schema.IDKey()) {
		rec[k] = v
	}
	id := a.newID()
	ts := a.now()
	who := actor(ctx)
	rec[a.schema.IDKey()] = id
	rec[entity.FieldCreatedAt] = ts
	rec[entity.FieldUpdatedAt] = ts
	rec[entity.FieldCreatedBy] = who
	rec[entity.FieldUpdatedBy] = who

	if err := a.col.Insert(ctx, rec); err != nil {
		return "", a.fail("create", err)
	}
	a.record("create", "ok")
	logger.Debugf("created %s/%s", a.schema.Collection, id)
	return id, nil
}

// Update merges partial into the document with id.
func (a *Accessor) Update(ctx context.Context, id string, partial entity.Record) error {
	before, err := a.col.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		a.record("update", "miss")
		return apperr.NotFound(a.schema.Collection, id)
	}
	if err != nil {
		return a.fail("update", err)
	}

	set := stripProtected(partial, a.schema.IDKey())
	set[entity.FieldUpdatedAt] = a.now()
	set[entity.FieldUpdatedBy] = actor(ctx)
	if err := a.col.Update(ctx, id, set); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.record("update", "miss")
			return apperr.NotFound(a.schema.Collection, id)
		}
		return a.fail("update", err)
	}
	a.record("update", "ok")

	after := before.Clone()
	for k, v := range set {
		after[k] = v
	}
	a.notify(ctx, before, after)
	return nil
}

// Remove deletes the document with id once the relation checker allows it.
// Cascade-safe references are removed afterwards.
func (a *Accessor) Remove(ctx context.Context, id string) error {
	if a.gate != nil {
		v, err := a.gate.CanDelete(ctx, a.schema.Collection, id)
		if err != nil {
			return a.fail("remove", err)
		}
		if !v.Allowed {
			a.record("remove", "refused")
			return apperr.RelationConflict(a.schema.Collection, id, v.BlockingRelations)
		}
	}
	a.mu.RLock()
	removers := append([]RemoveObserver(nil), a.removers...)
	a.mu.RUnlock()
	var removed entity.Record
	if len(removers) > 0 {
		rec, err := a.col.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			a.record("remove", "miss")
			return apperr.NotFound(a.schema.Collection, id)
		}
		if err != nil {
			return a.fail("remove", err)
		}
		removed = rec
	}
	if err := a.col.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.record("remove", "miss")
			return apperr.NotFound(a.schema.Collection, id)
		}
		return a.fail("remove", err)
	}
	a.record("remove", "ok")
	for _, o := range removers {
		o(ctx, a.schema, removed)
	}
	if a.gate != nil {
		n, err := a.gate.Cascade(ctx, a.schema.Collection, id)
		if err != nil {
			return a.fail("cascade", err)
		}
		if n > 0 {
			logger.Infof("removed %s/%s and %d dependent document(s)", a.schema.Collection, id, n)
		}
	}
	return nil
}

func (a *Accessor) notify(ctx context.Context, before, after entity.Record) {
	a.mu.RLock()
	obs := append([]UpdateObserver(nil), a.observers...)
	a.mu.RUnlock()
	for _, o := range obs {
		o(ctx, a.schema, before, after)
	}
}

func (a *Accessor) record(op, outcome string) {
	metrics.EntityOperations.WithLabelValues(a.schema.Collection, op, outcome).Inc()
}

func (a *Accessor) fail(op string, err error) error {
	a.record(op, "error")
	logger.Warnf("%s %s: %v", op, a.schema.Collection, err)
	return apperr.StoreOperation(op+" "+a.schema.Collection, err)
}

func stripProtected(data entity.Record, idKey string) entity.Record {
	out := make(entity.Record, len(data))
	for k, v := range data {
		switch k {
		case idKey, entity.FieldID, entity.FieldCreatedAt, entity.FieldCreatedBy:
			continue
		}
		out[k] = v
	}
	return out
}

func actor(ctx context.Context) string {
	if id, ok := models.IdentityFrom(ctx); ok {
		return id.Sub
	}
	return "system"
}
