package repository

import (
	"context"
	"testing"

	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection(entity.Lieux, "id")

	require.NoError(t, col.Insert(ctx, entity.Record{"id": "l1", "nom": "La Cigale"}))
	require.Error(t, col.Insert(ctx, entity.Record{"id": "l1", "nom": "dup"}))
	require.Error(t, col.Insert(ctx, entity.Record{"nom": "no id"}))

	got, err := col.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "La Cigale", got["nom"])

	// returned records are copies
	got["nom"] = "changed"
	again, err := col.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "La Cigale", again["nom"])

	require.NoError(t, col.Update(ctx, "l1", entity.Record{"ville": "Paris"}))
	got, err = col.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "Paris", got["ville"])
	require.Equal(t, "La Cigale", got["nom"])
	require.ErrorIs(t, col.Update(ctx, "missing", entity.Record{"a": 1}), ErrNotFound)

	require.NoError(t, col.Delete(ctx, "l1"))
	_, err = col.Get(ctx, "l1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, col.Delete(ctx, "l1"), ErrNotFound)
}

func TestMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	col := NewMemoryStore().Collection(entity.Contacts, "id")
	docs := []entity.Record{
		{"id": "c1", "nom": "Zoé", "structureId": "s1", "lieuxIds": []interface{}{"l1", "l2"}},
		{"id": "c2", "nom": "Alain", "structureId": "s2", "lieuxIds": []string{"l2"}},
		{"id": "c3", "nom": "Marc", "structureId": "s1", "gestionnaire": map[string]interface{}{"id": "c9"}},
	}
	for _, d := range docs {
		require.NoError(t, col.Insert(ctx, d))
	}

	list, err := col.Find(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c1", list[0]["id"], "insertion order is preserved")

	list, err = col.Find(ctx, Where("structureId", "s1"))
	require.NoError(t, err)
	require.Len(t, list, 2)

	n, err := col.Count(ctx, Query{Conditions: []Condition{{Field: "lieuxIds", Op: OpArrayContains, Value: "l2"}}})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = col.Count(ctx, Where("gestionnaire.id", "c9"))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// documents without the field match a not-equal condition
	n, err = col.Count(ctx, Query{Conditions: []Condition{{Field: "gestionnaire.id", Op: OpNe, Value: "c9"}}})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	list, err = col.Find(ctx, Query{AnyOf: []Condition{
		{Field: "nom", Op: OpContainsFold, Value: "AR"},
		{Field: "nom", Op: OpContainsFold, Value: "zo"},
	}, SortBy: "nom"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Marc", list[0]["nom"])
	require.Equal(t, "Zoé", list[1]["nom"])

	list, err = col.Find(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
}
