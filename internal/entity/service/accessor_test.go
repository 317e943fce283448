package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/internal/models"
	"github.com/tourcraft/tourcraft/internal/relations"
)

var fixed = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newAccessors(store repository.Store) *Accessors {
	reg := entity.DefaultRegistry()
	checker := relations.NewChecker(store, reg, relations.DefaultGraph(), 2)
	seq := 0
	return NewAccessors(reg, store, checker,
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { seq++; return "id-" + string(rune('0'+seq)) }),
	)
}

func TestAccessor_CreateGetRoundTrip(t *testing.T) {
	ctx := models.WithIdentity(context.Background(), models.Identity{Sub: "u1"})
	lieux := newAccessors(repository.NewMemoryStore()).MustFor(entity.Lieux)

	id, err := lieux.Create(ctx, entity.Record{"nom": "La Cigale", "id": "forged", "createdBy": "mallory"})
	require.NoError(t, err)
	require.Equal(t, "id-1", id)

	got, err := lieux.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "La Cigale", got["nom"])
	require.Equal(t, id, got["id"])
	require.Equal(t, "u1", got[entity.FieldCreatedBy])
	require.Equal(t, "u1", got[entity.FieldUpdatedBy])
	require.Equal(t, fixed, got[entity.FieldCreatedAt])
	require.Equal(t, "France", got["pays"], "schema default applied")
}

func TestAccessor_GetMissingIsNil(t *testing.T) {
	a := newAccessors(repository.NewMemoryStore()).MustFor(entity.Contacts)
	got, err := a.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAccessor_UpdateMergesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newAccessors(repository.NewMemoryStore()).MustFor(entity.Artistes)
	id, err := a.Create(ctx, entity.Record{"nom": "Nina", "style": "jazz"})
	require.NoError(t, err)

	require.NoError(t, a.Update(ctx, id, entity.Record{"style": "soul", "createdAt": "tampered"}))
	first, err := a.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, a.Update(ctx, id, entity.Record{"style": "soul"}))
	second, err := a.Get(ctx, id)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, "Nina", second["nom"])
	require.Equal(t, "soul", second["style"])
	require.Equal(t, fixed, second[entity.FieldCreatedAt])
	require.Equal(t, "system", second[entity.FieldUpdatedBy])
}

func TestAccessor_UpdateUnknownIsNotFound(t *testing.T) {
	a := newAccessors(repository.NewMemoryStore()).MustFor(entity.Artistes)
	err := a.Update(context.Background(), "ghost", entity.Record{"nom": "x"})
	require.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestAccessor_UpdateNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	a := newAccessors(repository.NewMemoryStore()).MustFor(entity.Dates)
	id, err := a.Create(ctx, entity.Record{"titre": "Concert", "date": "2026-06-01"})
	require.NoError(t, err)

	var gotBefore, gotAfter entity.Record
	a.Observe(func(_ context.Context, s entity.Schema, before, after entity.Record) {
		require.Equal(t, entity.Dates, s.Collection)
		gotBefore, gotAfter = before, after
	})
	require.NoError(t, a.Update(ctx, id, entity.Record{"statut": entity.StatusConfirme}))
	require.Equal(t, entity.StatusOption, gotBefore["statut"])
	require.Equal(t, entity.StatusConfirme, gotAfter["statut"])
}

func TestAccessor_RemoveRefusedWhenReferenced(t *testing.T) {
	ctx := context.Background()
	as := newAccessors(repository.NewMemoryStore())
	lieux, dates := as.MustFor(entity.Lieux), as.MustFor(entity.Dates)

	lid, err := lieux.Create(ctx, entity.Record{"nom": "Olympia"})
	require.NoError(t, err)
	_, err = dates.Create(ctx, entity.Record{"titre": "Soirée", "date": "2026-06-01", "lieuId": lid})
	require.NoError(t, err)

	err = lieux.Remove(ctx, lid)
	require.True(t, apperr.Is(err, apperr.CodeRelationConflict))
	ae, _ := apperr.As(err)
	blocking := ae.Params["blockingRelations"].([]relations.Blocking)
	require.Len(t, blocking, 1)
	require.Equal(t, "dates", blocking[0].Collection)
	require.Equal(t, "lieuId", blocking[0].Field)
	require.Equal(t, []string{"Soirée"}, blocking[0].SampleLabels)

	still, err := lieux.Get(ctx, lid)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestAccessor_RemoveCascadesTaches(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	as := newAccessors(store)
	dates, taches := as.MustFor(entity.Dates), as.MustFor(entity.Taches)

	did, err := dates.Create(ctx, entity.Record{"titre": "Concert", "date": "2026-06-01"})
	require.NoError(t, err)
	_, err = taches.Create(ctx, entity.Record{"nom": "Relance", "dateId": did, "automatique": true})
	require.NoError(t, err)

	require.NoError(t, dates.Remove(ctx, did))
	left, err := taches.List(ctx, repository.Query{})
	require.NoError(t, err)
	require.Empty(t, left)

	err = dates.Remove(ctx, did)
	require.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestAccessor_RemoveKeepsManualTaches(t *testing.T) {
	ctx := context.Background()
	as := newAccessors(repository.NewMemoryStore())
	dates, taches := as.MustFor(entity.Dates), as.MustFor(entity.Taches)

	did, err := dates.Create(ctx, entity.Record{"titre": "Concert", "date": "2026-06-01"})
	require.NoError(t, err)
	mid, err := taches.Create(ctx, entity.Record{"nom": "Appeler la salle", "dateId": did, "automatique": false})
	require.NoError(t, err)
	_, err = taches.Create(ctx, entity.Record{"nom": "Relance", "dateId": did, "automatique": true})
	require.NoError(t, err)

	err = dates.Remove(ctx, did)
	require.True(t, apperr.Is(err, apperr.CodeRelationConflict))

	manual, err := taches.Get(ctx, mid)
	require.NoError(t, err)
	require.NotNil(t, manual)
	date, err := dates.Get(ctx, did)
	require.NoError(t, err)
	require.NotNil(t, date)
	left, err := taches.List(ctx, repository.Query{})
	require.NoError(t, err)
	require.Len(t, left, 2, "a refused delete cascades nothing")

	require.NoError(t, taches.Remove(ctx, mid))
	require.NoError(t, dates.Remove(ctx, did))
	left, err = taches.List(ctx, repository.Query{})
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestAccessor_RemoveNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	as := newAccessors(repository.NewMemoryStore())
	contrats := as.MustFor(entity.Contrats)
	var got []entity.Record
	contrats.OnRemove(func(_ context.Context, s entity.Schema, removed entity.Record) {
		require.Equal(t, entity.Contrats, s.Collection)
		got = append(got, removed)
	})

	id, err := contrats.Create(ctx, entity.Record{"reference": "C-7", "documentKey": "contrats/x/document.pdf"})
	require.NoError(t, err)
	require.NoError(t, contrats.Remove(ctx, id))
	require.Len(t, got, 1)
	require.Equal(t, "contrats/x/document.pdf", got[0]["documentKey"])

	err = contrats.Remove(ctx, id)
	require.True(t, apperr.Is(err, apperr.CodeNotFound))
	require.Len(t, got, 1)
}

type brokenStore struct{}

type brokenCollection struct{ repository.Collection }

func (brokenStore) Collection(string, string) repository.Collection { return brokenCollection{} }

func (brokenCollection) Get(context.Context, string) (entity.Record, error) {
	return nil, errors.New("network unreachable")
}

func (brokenCollection) Find(context.Context, repository.Query) ([]entity.Record, error) {
	return nil, errors.New("network unreachable")
}

func TestAccessor_StoreErrorsAreWrapped(t *testing.T) {
	a := New(entity.DefaultRegistry().MustLookup(entity.Contacts), brokenStore{}, nil)
	_, err := a.Get(context.Background(), "x")
	require.True(t, apperr.Is(err, apperr.CodeStoreOperation))
	require.ErrorContains(t, err, "network unreachable")

	_, err = a.List(context.Background(), repository.Query{})
	require.True(t, apperr.Is(err, apperr.CodeStoreOperation))
}

func TestAccessors_UnknownCollection(t *testing.T) {
	_, err := newAccessors(repository.NewMemoryStore()).For("concerts")
	require.True(t, apperr.Is(err, apperr.CodeUnknownCollection))
}
