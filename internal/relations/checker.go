package relations

import (
	"context"
	"errors"
	"fmt"

	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/pkg/logger"
	"github.com/tourcraft/tourcraft/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// SampleSize is the number of referencing labels reported per blocking relation.
const SampleSize = 3

// Blocking describes one relation that prevents a delete.
type Blocking struct {
	Collection   string   `json:"collection"`
	Field        string   `json:"field"`
	Count        int64    `json:"count"`
	SampleLabels []string `json:"sampleLabels"`
}

// Verdict is the answer of CanDelete.
type Verdict struct {
	Allowed           bool       `json:"allowed"`
	BlockingRelations []Blocking `json:"blockingRelations"`
}

// Checker evaluates the relation graph against the store.
type Checker struct {
	store    repository.Store
	registry *entity.Registry
	graph    Graph
	limit    int
}

// NewChecker builds a checker. Relation queries run concurrently, at most
// parallel at a time (0 means 4).
func NewChecker(store repository.Store, registry *entity.Registry, graph Graph, parallel int) *Checker {
	if parallel <= 0 {
		parallel = 4
	}
	return &Checker{store: store, registry: registry, graph: graph, limit: parallel}
}

func (c *Checker) collection(name string) repository.Collection {
	idField := entity.FieldID
	if s, ok := c.registry.Lookup(name); ok {
		idField = s.IDKey()
	}
	return c.store.Collection(name, idField)
}

// CanDelete reports whether collection/id may be deleted. Cascade-safe
// relations never block.
func (c *Checker) CanDelete(ctx context.Context, collection, id string) (Verdict, error) {
	rels := c.graph.For(collection)
	found := make([]*Blocking, len(rels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, rel := range rels {
		if rel.Cascade {
			continue
		}
		i, rel := i, rel
		g.Go(func() error {
			b, err := c.check(gctx, rel, id)
			if err != nil {
				return fmt.Errorf("check %s.%s: %w", rel.Collection, rel.Field, err)
			}
			found[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Verdict{}, err
	}

	v := Verdict{Allowed: true, BlockingRelations: []Blocking{}}
	for _, b := range found {
		if b == nil {
			continue
		}
		v.Allowed = false
		v.BlockingRelations = append(v.BlockingRelations, *b)
		metrics.DeletesRefused.WithLabelValues(collection, b.Collection).Inc()
	}
	if !v.Allowed {
		logger.Infof("delete of %s/%s refused: %d blocking relation(s)", collection, id, len(v.BlockingRelations))
	}
	return v, nil
}

func (c *Checker) check(ctx context.Context, rel Relation, id string) (*Blocking, error) {
	col := c.collection(rel.Collection)
	q := rel.query(id)
	n, err := col.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	q.Limit = SampleSize
	docs, err := col.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	schema, _ := c.registry.Lookup(rel.Collection)
	labels := make([]string, 0, len(docs))
	for _, d := range docs {
		labels = append(labels, schema.Label(d))
	}
	return &Blocking{Collection: rel.Collection, Field: rel.Field, Count: n, SampleLabels: labels}, nil
}

// Cascade deletes the documents referencing collection/id through
// cascade-safe relations and returns how many were removed.
func (c *Checker) Cascade(ctx context.Context, collection, id string) (int, error) {
	removed := 0
	for _, rel := range c.graph.For(collection) {
		if !rel.Cascade {
			continue
		}
		col := c.collection(rel.Collection)
		schema, _ := c.registry.Lookup(rel.Collection)
		docs, err := col.Find(ctx, rel.query(id))
		if err != nil {
			return removed, fmt.Errorf("cascade %s.%s: %w", rel.Collection, rel.Field, err)
		}
		for _, d := range docs {
			err := col.Delete(ctx, d.String(schema.IDKey()))
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return removed, fmt.Errorf("cascade %s.%s: %w", rel.Collection, rel.Field, err)
			}
			removed++
		}
	}
	return removed, nil
}
