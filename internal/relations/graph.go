// Package relations holds the declarative relation graph of the catalog and
// the checker that refuses deletes of still-referenced entities.
package relations

import (
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
)

// Kind is how a referencing document stores the target id.
type Kind string

const (
	// Direct: {lieuId: "l1"}
	Direct Kind = "direct"
	// Array: {lieuxIds: ["l1", "l2"]}
	Array Kind = "array"
	// Object: {gestionnaire: {id: "c1", nom: "..."}}
	Object Kind = "object"
)

// Relation is one "referencing collection + field" pair pointing at a target.
type Relation struct {
	Collection   string
	Field        string
	Kind         Kind
	ObjectIDPath string // only for Object, defaults to "id"
	Cascade      bool   // referencing documents are deleted with the target
	// Where narrows the referencing documents the relation covers.
	Where []repository.Condition
}

// Path is the queried field path.
func (r Relation) Path() string {
	if r.Kind == Object {
		p := r.ObjectIDPath
		if p == "" {
			p = entity.FieldID
		}
		return r.Field + "." + p
	}
	return r.Field
}

func (r Relation) query(id string) repository.Query {
	op := repository.OpEq
	if r.Kind == Array {
		op = repository.OpArrayContains
	}
	conds := []repository.Condition{{Field: r.Path(), Op: op, Value: id}}
	return repository.Query{Conditions: append(conds, r.Where...)}
}

// Graph maps a target collection to the relations referencing it.
type Graph map[string][]Relation

// For returns the relations configured for target. Unlisted relations are
// not checked.
func (g Graph) For(target string) []Relation { return g[target] }

// DefaultGraph is the relation table of the TourCraft catalog.
func DefaultGraph() Graph {
	return Graph{
		entity.Lieux: {
			{Collection: entity.Dates, Field: "lieuId", Kind: Direct},
			{Collection: entity.Contacts, Field: "lieuxIds", Kind: Array},
		},
		entity.Structures: {
			{Collection: entity.Dates, Field: "structureId", Kind: Direct},
			{Collection: entity.Contacts, Field: "structureId", Kind: Direct},
			{Collection: entity.Contrats, Field: "structureId", Kind: Direct},
		},
		entity.Artistes: {
			{Collection: entity.Dates, Field: "artisteId", Kind: Direct},
		},
		entity.Contacts: {
			{Collection: entity.Dates, Field: "contactId", Kind: Direct},
			{Collection: entity.Structures, Field: "contactsIds", Kind: Array},
			{Collection: entity.Lieux, Field: "gestionnaire", Kind: Object, ObjectIDPath: "id"},
		},
		entity.Dates: {
			{Collection: entity.Contrats, Field: "dateId", Kind: Direct},
			// manual taches block, automatic relances go with the date
			{Collection: entity.Taches, Field: "dateId", Kind: Direct, Where: []repository.Condition{
				{Field: "automatique", Op: repository.OpNe, Value: true},
			}},
			{Collection: entity.Taches, Field: "dateId", Kind: Direct, Cascade: true, Where: []repository.Condition{
				{Field: "automatique", Op: repository.OpEq, Value: true},
			}},
		},
	}
}
