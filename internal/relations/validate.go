package relations

import (
	"fmt"
	"sort"

	"github.com/tourcraft/tourcraft/internal/entity"
)

// Report is the outcome of validating a graph against a registry.
// Errors make the graph unusable; Warnings list schema references the graph
// does not check.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether the graph has no errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Validate checks every relation against the schemas: both collections must
// be registered, the field must be declared on the referencing schema with a
// kind matching the relation, and it must reference the target collection.
// Reference fields declared in schemas but absent from the graph are
// reported as warnings.
func (g Graph) Validate(reg *entity.Registry) Report {
	rep := Report{Errors: []string{}, Warnings: []string{}}
	covered := map[string]bool{}

	targets := make([]string, 0, len(g))
	for t := range g {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, target := range targets {
		if _, ok := reg.Lookup(target); !ok {
			rep.Errors = append(rep.Errors, fmt.Sprintf("target collection %q is not registered", target))
			continue
		}
		for _, rel := range g[target] {
			name := rel.Collection + "." + rel.Field
			schema, ok := reg.Lookup(rel.Collection)
			if !ok {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: collection %q is not registered", name, rel.Collection))
				continue
			}
			f, ok := schema.Field(rel.Field)
			if !ok {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: field not declared on %s", name, schema.Type))
				continue
			}
			if want := kindFor(rel.Kind); f.Kind != want {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: field kind %s does not match relation kind %s", name, f.Kind, rel.Kind))
			}
			if f.Ref != target {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: field references %q, relation targets %q", name, f.Ref, target))
			}
			covered[name] = true
		}
	}

	for _, s := range reg.All() {
		for _, f := range s.Fields {
			switch f.Kind {
			case entity.KindRef, entity.KindRefList, entity.KindObject:
			default:
				continue
			}
			if f.Ref == "" {
				continue
			}
			name := s.Collection + "." + f.Name
			if !covered[name] {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s references %s but is not checked before deletes", name, f.Ref))
			}
		}
	}
	return rep
}

func kindFor(k Kind) entity.Kind {
	switch k {
	case Array:
		return entity.KindRefList
	case Object:
		return entity.KindObject
	}
	return entity.KindRef
}

// IndexedFields returns, per referencing collection, the field paths queried
// by the graph. Used to create store indexes.
func (g Graph) IndexedFields() map[string][]string {
	out := map[string][]string{}
	seen := map[string]bool{}
	for _, rels := range g {
		for _, rel := range rels {
			key := rel.Collection + "|" + rel.Path()
			if seen[key] {
				continue
			}
			seen[key] = true
			out[rel.Collection] = append(out[rel.Collection], rel.Path())
		}
	}
	for c := range out {
		sort.Strings(out[c])
	}
	return out
}
