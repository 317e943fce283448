package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Standard field names shared by every entity document.
const (
	FieldID             = "id"
	FieldCreatedAt      = "createdAt"
	FieldUpdatedAt      = "updatedAt"
	FieldCreatedBy      = "createdBy"
	FieldUpdatedBy      = "updatedBy"
	FieldLastUpdateType = "lastUpdateType"
)

// Record is a single entity document keyed by field name. Nested objects are
// Record or map[string]interface{}; lists are []interface{} or []string.
type Record map[string]interface{}

// Lookup resolves a dotted path ("gestionnaire.id") inside the record.
func (r Record) Lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the field rendered as text, or "" when absent.
func (r Record) String(path string) string {
	v, ok := r.Lookup(path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Time returns a time field. Values may be time.Time or RFC3339 strings.
func (r Record) Time(path string) (time.Time, bool) {
	v, ok := r.Lookup(path)
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy; nested maps and slices are not shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]interface{}:
		return map[string]interface{}(Record(t).Clone())
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]interface{}:
		return m, true
	}
	return nil, false
}

// Kind is the storage kind of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBool    Kind = "bool"
	KindDate    Kind = "date"
	KindRef     Kind = "ref"
	KindRefList Kind = "refList"
	KindObject  Kind = "object"
)

// Field describes one schema field and its validation attributes.
type Field struct {
	Name      string
	Kind      Kind
	Ref       string // referenced collection for ref / refList / object kinds
	Required  bool
	Format    string // email, url, phone
	Pattern   string
	MinLength int
	MaxLength int
	OneOf     []string
	Default   interface{}
}

// Schema describes an entity type stored in one collection.
type Schema struct {
	Type         string
	Collection   string
	IDField      string
	DisplayField string
	SearchFields []string
	Fields       []Field
}

// Field returns the named field definition.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Label returns the display label of a record, falling back to its id.
func (s Schema) Label(r Record) string {
	if s.DisplayField != "" {
		if l := r.String(s.DisplayField); l != "" {
			return l
		}
	}
	return r.String(s.idField())
}

func (s Schema) idField() string {
	if s.IDField == "" {
		return FieldID
	}
	return s.IDField
}

// IDKey returns the field holding the entity id.
func (s Schema) IDKey() string { return s.idField() }

// Registry indexes schemas by collection and by type.
type Registry struct {
	byCollection map[string]Schema
	byType       map[string]string
}

// NewRegistry builds a registry; duplicate collections or types are rejected.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	reg := &Registry{byCollection: map[string]Schema{}, byType: map[string]string{}}
	for _, s := range schemas {
		if s.Collection == "" {
			return nil, fmt.Errorf("schema %q has no collection", s.Type)
		}
		if _, dup := reg.byCollection[s.Collection]; dup {
			return nil, fmt.Errorf("duplicate collection %q", s.Collection)
		}
		if _, dup := reg.byType[s.Type]; dup {
			return nil, fmt.Errorf("duplicate entity type %q", s.Type)
		}
		if s.IDField == "" {
			s.IDField = FieldID
		}
		reg.byCollection[s.Collection] = s
		reg.byType[s.Type] = s.Collection
	}
	return reg, nil
}

// Lookup returns the schema stored in collection.
func (r *Registry) Lookup(collection string) (Schema, bool) {
	s, ok := r.byCollection[collection]
	return s, ok
}

// LookupType returns the schema for an entity type name ("lieu").
func (r *Registry) LookupType(typ string) (Schema, bool) {
	col, ok := r.byType[typ]
	if !ok {
		return Schema{}, false
	}
	return r.Lookup(col)
}

// All returns the schemas sorted by collection name.
func (r *Registry) All() []Schema {
	out := make([]Schema, 0, len(r.byCollection))
	for _, s := range r.byCollection {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}

// MustLookup is Lookup for collections known to be registered.
func (r *Registry) MustLookup(collection string) Schema {
	s, ok := r.Lookup(collection)
	if !ok {
		panic(fmt.Sprintf("collection %q is not registered", collection))
	}
	return s
}
