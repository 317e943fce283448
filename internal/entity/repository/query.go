package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tourcraft/tourcraft/internal/entity"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Op is a query comparison operator.
type Op string

const (
	OpEq            Op = "=="
	OpNe            Op = "!="
	OpArrayContains Op = "array-contains"
	OpContainsFold  Op = "contains-fold"
)

// Condition compares one (possibly dotted) field.
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

// Query selects documents: all Conditions must hold and, when AnyOf is not
// empty, at least one of AnyOf must hold.
type Query struct {
	Conditions []Condition
	AnyOf      []Condition
	SortBy     string
	Limit      int
}

// Where returns a query with a single equality condition.
func Where(field string, value interface{}) Query {
	return Query{Conditions: []Condition{{Field: field, Op: OpEq, Value: value}}}
}

// Collection is the per-collection document capability.
type Collection interface {
	Get(ctx context.Context, id string) (entity.Record, error)
	Find(ctx context.Context, q Query) ([]entity.Record, error)
	Count(ctx context.Context, q Query) (int64, error)
	Insert(ctx context.Context, rec entity.Record) error
	Update(ctx context.Context, id string, set entity.Record) error
	Delete(ctx context.Context, id string) error
}

// Store hands out collections by name. idField names the document key.
type Store interface {
	Collection(name, idField string) Collection
}

func (q Query) matches(r entity.Record) bool {
	for _, c := range q.Conditions {
		if !c.matches(r) {
			return false
		}
	}
	if len(q.AnyOf) == 0 {
		return true
	}
	for _, c := range q.AnyOf {
		if c.matches(r) {
			return true
		}
	}
	return false
}

func (c Condition) matches(r entity.Record) bool {
	v, ok := r.Lookup(c.Field)
	if c.Op == OpNe {
		// absent fields differ from any value
		return !ok || !equalValues(v, c.Value)
	}
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq, "":
		return equalValues(v, c.Value)
	case OpArrayContains:
		switch list := v.(type) {
		case []interface{}:
			for _, item := range list {
				if equalValues(item, c.Value) {
					return true
				}
			}
		case []string:
			for _, item := range list {
				if equalValues(item, c.Value) {
					return true
				}
			}
		}
		return false
	case OpContainsFold:
		s, ok := v.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(c.Value)))
	}
	return false
}

func equalValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func sortRecords(list []entity.Record, field string) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].String(field) < list[j].String(field)
	})
}
