package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get decodes and strips _id", func(mt *mtest.T) {
		created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tourcraft.lieux", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "id", Value: "l1"},
			{Key: "nom", Value: "La Cigale"},
			{Key: "createdAt", Value: primitive.NewDateTimeFromTime(created)},
			{Key: "gestionnaire", Value: bson.D{{Key: "id", Value: "c1"}}},
		}))
		col := NewMongoCollection(mt.Coll, "id")
		got, err := col.Get(context.Background(), "l1")
		require.NoError(t, err)
		require.NotContains(t, got, "_id")
		require.Equal(t, "La Cigale", got["nom"])
		require.Equal(t, "c1", got.String("gestionnaire.id"))
		at, ok := got.Time("createdAt")
		require.True(t, ok)
		require.True(t, at.Equal(created))
	})

	mt.Run("get missing is ErrNotFound", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "tourcraft.lieux", mtest.FirstBatch))
		col := NewMongoCollection(mt.Coll, "id")
		_, err := col.Get(context.Background(), "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		col := NewMongoCollection(mt.Coll, "id")
		require.NoError(t, col.Insert(context.Background(), map[string]interface{}{"id": "l2", "nom": "Le Trianon"}))
		require.Error(t, col.Insert(context.Background(), map[string]interface{}{"nom": "no id"}))
	})

	mt.Run("update unmatched is ErrNotFound", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		col := NewMongoCollection(mt.Coll, "id")
		err := col.Update(context.Background(), "missing", map[string]interface{}{"nom": "x"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		col := NewMongoCollection(mt.Coll, "id")
		require.NoError(t, col.Delete(context.Background(), "l1"))
	})
}

func TestToFilter(t *testing.T) {
	require.Equal(t, bson.M{}, toFilter(Query{}))
	require.Equal(t, bson.M{"lieuId": "l1"}, toFilter(Where("lieuId", "l1")))
	require.Equal(t, bson.M{"automatique": bson.M{"$ne": true}},
		toFilter(Query{Conditions: []Condition{{Field: "automatique", Op: OpNe, Value: true}}}))

	f := toFilter(Query{
		Conditions: []Condition{{Field: "automatique", Op: OpEq, Value: true}},
		AnyOf:      []Condition{{Field: "nom", Op: OpContainsFold, Value: "a.b"}},
	})
	and, ok := f["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, and, 2)
	or := and[1]["$or"].([]bson.M)
	require.Equal(t, bson.M{"nom": bson.M{"$regex": `a\.b`, "$options": "i"}}, or[0])
}
