package relations

import (
	"context"
	"errors"
	"testing"

	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store repository.Store, collection string, docs ...entity.Record) {
	t.Helper()
	col := store.Collection(collection, "id")
	for _, d := range docs {
		require.NoError(t, col.Insert(context.Background(), d))
	}
}

func newChecker(store repository.Store) *Checker {
	return NewChecker(store, entity.DefaultRegistry(), DefaultGraph(), 2)
}

func TestCanDelete_LieuReferencedByDate(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, entity.Lieux, entity.Record{"id": "l1", "nom": "La Cigale"})
	seed(t, store, entity.Dates,
		entity.Record{"id": "d1", "titre": "Concert A", "lieuId": "l1"},
		entity.Record{"id": "d2", "titre": "Concert B", "lieuId": "l1"},
		entity.Record{"id": "d3", "titre": "Concert C", "lieuId": "other"},
	)

	v, err := newChecker(store).CanDelete(context.Background(), entity.Lieux, "l1")
	require.NoError(t, err)
	require.False(t, v.Allowed)
	require.Len(t, v.BlockingRelations, 1)
	b := v.BlockingRelations[0]
	require.Equal(t, "dates", b.Collection)
	require.Equal(t, "lieuId", b.Field)
	require.EqualValues(t, 2, b.Count)
	require.ElementsMatch(t, []string{"Concert A", "Concert B"}, b.SampleLabels)
}

func TestCanDelete_AllowedWhenUnreferenced(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, entity.Lieux, entity.Record{"id": "l1", "nom": "La Cigale"})
	seed(t, store, entity.Dates, entity.Record{"id": "d1", "titre": "Ailleurs", "lieuId": "l2"})

	v, err := newChecker(store).CanDelete(context.Background(), entity.Lieux, "l1")
	require.NoError(t, err)
	require.True(t, v.Allowed)
	require.Empty(t, v.BlockingRelations)
}

func TestCanDelete_UnconfiguredCollectionIsAllowed(t *testing.T) {
	store := repository.NewMemoryStore()
	// a tache pointing at a contrat: contrats have no configured relations
	seed(t, store, entity.Taches, entity.Record{"id": "t1", "nom": "x", "contratId": "k1"})

	v, err := newChecker(store).CanDelete(context.Background(), entity.Contrats, "k1")
	require.NoError(t, err)
	require.True(t, v.Allowed)
}

func TestCanDelete_ArrayAndObjectKinds(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, entity.Structures, entity.Record{"id": "s1", "raisonSociale": "Asso", "contactsIds": []interface{}{"c1"}})
	seed(t, store, entity.Lieux, entity.Record{"id": "l1", "nom": "Salle", "gestionnaire": map[string]interface{}{"id": "c1"}})

	v, err := newChecker(store).CanDelete(context.Background(), entity.Contacts, "c1")
	require.NoError(t, err)
	require.False(t, v.Allowed)
	require.Len(t, v.BlockingRelations, 2)
	// graph order is preserved
	require.Equal(t, "structures", v.BlockingRelations[0].Collection)
	require.Equal(t, []string{"Asso"}, v.BlockingRelations[0].SampleLabels)
	require.Equal(t, "lieux", v.BlockingRelations[1].Collection)
	require.Equal(t, "gestionnaire", v.BlockingRelations[1].Field)
}

func TestCanDelete_SampleLabelsAreBounded(t *testing.T) {
	store := repository.NewMemoryStore()
	for _, id := range []string{"d1", "d2", "d3", "d4", "d5"} {
		seed(t, store, entity.Dates, entity.Record{"id": id, "artisteId": "a1"})
	}
	v, err := newChecker(store).CanDelete(context.Background(), entity.Artistes, "a1")
	require.NoError(t, err)
	require.EqualValues(t, 5, v.BlockingRelations[0].Count)
	// no display value: labels fall back to ids
	require.Equal(t, []string{"d1", "d2", "d3"}, v.BlockingRelations[0].SampleLabels)
}

func TestCascadeRelationsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seed(t, store, entity.Dates, entity.Record{"id": "d1", "titre": "Concert"})
	seed(t, store, entity.Taches,
		entity.Record{"id": "t1", "nom": "Relancer", "dateId": "d1", "automatique": true},
		entity.Record{"id": "t2", "nom": "Autre", "dateId": "d2", "automatique": true},
	)
	c := newChecker(store)

	v, err := c.CanDelete(ctx, entity.Dates, "d1")
	require.NoError(t, err)
	require.True(t, v.Allowed)

	n, err := c.Cascade(ctx, entity.Dates, "d1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	left, err := store.Collection(entity.Taches, "id").Find(ctx, repository.Query{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "t2", left[0]["id"])
}

func TestManualTachesBlockAndSurviveCascade(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seed(t, store, entity.Dates, entity.Record{"id": "d1", "titre": "Concert"})
	seed(t, store, entity.Taches,
		entity.Record{"id": "t1", "nom": "Appeler la salle", "dateId": "d1"},
		entity.Record{"id": "t2", "nom": "Réserver l'hôtel", "dateId": "d1", "automatique": false},
		entity.Record{"id": "t3", "nom": "Relancer", "dateId": "d1", "automatique": true},
	)
	c := newChecker(store)

	v, err := c.CanDelete(ctx, entity.Dates, "d1")
	require.NoError(t, err)
	require.False(t, v.Allowed)
	require.Len(t, v.BlockingRelations, 1)
	b := v.BlockingRelations[0]
	require.Equal(t, entity.Taches, b.Collection)
	require.Equal(t, "dateId", b.Field)
	require.EqualValues(t, 2, b.Count)

	n, err := c.Cascade(ctx, entity.Dates, "d1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	left, err := store.Collection(entity.Taches, "id").Find(ctx, repository.Query{SortBy: "id"})
	require.NoError(t, err)
	require.Len(t, left, 2)
	require.Equal(t, "t1", left[0]["id"])
	require.Equal(t, "t2", left[1]["id"])
}

type failingStore struct{ repository.Store }

type failingCollection struct{ repository.Collection }

func (f failingStore) Collection(name, idField string) repository.Collection {
	return failingCollection{f.Store.Collection(name, idField)}
}

func (failingCollection) Count(context.Context, repository.Query) (int64, error) {
	return 0, errors.New("permission denied")
}

func TestCanDelete_StoreErrorPropagates(t *testing.T) {
	store := failingStore{repository.NewMemoryStore()}
	_, err := newChecker(store).CanDelete(context.Background(), entity.Lieux, "l1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "permission denied")
}
