// Package search implements ranked free-text entity search and a debounced
// search controller.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
)

// Rank keeps the records whose searchable fields contain term
// (case-insensitive) and orders them: prefix matches on any field first,
// then by display field, case-insensitively and then raw. max <= 0 means
// unbounded.
func Rank(records []entity.Record, term string, fields []string, displayField string, max int) []entity.Record {
	needle := strings.ToLower(strings.TrimSpace(term))
	type hit struct {
		rec    entity.Record
		prefix bool
		label  string
	}
	hits := make([]hit, 0, len(records))
	for _, r := range records {
		matched, prefix := false, false
		for _, f := range fields {
			v := strings.ToLower(r.String(f))
			if v == "" || !strings.Contains(v, needle) {
				continue
			}
			matched = true
			if strings.HasPrefix(v, needle) {
				prefix = true
				break
			}
		}
		if matched {
			hits = append(hits, hit{rec: r, prefix: prefix, label: r.String(displayField)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.prefix != b.prefix {
			return a.prefix
		}
		la, lb := strings.ToLower(a.label), strings.ToLower(b.label)
		if la != lb {
			return la < lb
		}
		return a.label < b.label
	})

	if max > 0 && len(hits) > max {
		hits = hits[:max]
	}
	out := make([]entity.Record, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}

// Lister is the read side of the entity accessor.
type Lister interface {
	List(ctx context.Context, q repository.Query) ([]entity.Record, error)
}

// Searcher runs store queries for one schema and ranks the candidates.
type Searcher struct {
	schema    entity.Schema
	lister    Lister
	max       int
	minLength int
}

// NewSearcher returns a searcher. minLength below 1 is treated as 1.
func NewSearcher(schema entity.Schema, lister Lister, max, minLength int) *Searcher {
	if minLength < 1 {
		minLength = 1
	}
	return &Searcher{schema: schema, lister: lister, max: max, minLength: minLength}
}

// Schema returns the searched schema.
func (s *Searcher) Schema() entity.Schema { return s.schema }

// Search returns at most max ranked matches. Short terms return nothing.
func (s *Searcher) Search(ctx context.Context, term string) ([]entity.Record, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < s.minLength || len(s.schema.SearchFields) == 0 {
		return []entity.Record{}, nil
	}
	q := repository.Query{}
	for _, f := range s.schema.SearchFields {
		q.AnyOf = append(q.AnyOf, repository.Condition{Field: f, Op: repository.OpContainsFold, Value: term})
	}
	candidates, err := s.lister.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return Rank(candidates, term, s.schema.SearchFields, s.schema.DisplayField, s.max), nil
}
