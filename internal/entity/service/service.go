package service

import (
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
)

// Accessors holds one accessor per registered collection.
type Accessors struct {
	registry *entity.Registry
	byName   map[string]*Accessor
}

// NewAccessors builds accessors for every schema of reg, sharing store and gate.
func NewAccessors(reg *entity.Registry, store repository.Store, gate DeleteGate, opts ...Option) *Accessors {
	as := &Accessors{registry: reg, byName: map[string]*Accessor{}}
	for _, s := range reg.All() {
		as.byName[s.Collection] = New(s, store, gate, opts...)
	}
	return as
}

// For returns the accessor of collection or an UNKNOWN_COLLECTION error.
func (as *Accessors) For(collection string) (*Accessor, error) {
	a, ok := as.byName[collection]
	if !ok {
		return nil, apperr.UnknownCollection(collection)
	}
	return a, nil
}

// MustFor is For for collections known at compile time.
func (as *Accessors) MustFor(collection string) *Accessor {
	a, err := as.For(collection)
	if err != nil {
		panic(err)
	}
	return a
}

// Registry returns the schema registry the accessors were built from.
func (as *Accessors) Registry() *entity.Registry { return as.registry }
