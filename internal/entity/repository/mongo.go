package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/tourcraft/tourcraft/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database.
// Documents keep their string id in the schema id field ("id"); the driver
// assigns its own _id, which is stripped on read.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Collection(name, idField string) Collection {
	if idField == "" {
		idField = entity.FieldID
	}
	return NewMongoCollection(s.db.Collection(name), idField)
}

// MongoCollection is a single MongoDB-backed collection.
type MongoCollection struct {
	col     *mongo.Collection
	idField string
}

func NewMongoCollection(col *mongo.Collection, idField string) *MongoCollection {
	return &MongoCollection{col: col, idField: idField}
}

func (m *MongoCollection) Get(ctx context.Context, id string) (entity.Record, error) {
	var raw bson.M
	err := m.col.FindOne(ctx, bson.M{m.idField: id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromBSON(raw), nil
}

func (m *MongoCollection) Find(ctx context.Context, q Query) ([]entity.Record, error) {
	opts := options.Find()
	if q.SortBy != "" {
		opts.SetSort(bson.D{{Key: q.SortBy, Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := m.col.Find(ctx, toFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []entity.Record{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(raw))
	}
	return out, cur.Err()
}

func (m *MongoCollection) Count(ctx context.Context, q Query) (int64, error) {
	return m.col.CountDocuments(ctx, toFilter(q))
}

func (m *MongoCollection) Insert(ctx context.Context, rec entity.Record) error {
	if rec.String(m.idField) == "" {
		return fmt.Errorf("insert: missing %s", m.idField)
	}
	_, err := m.col.InsertOne(ctx, bson.M(rec.Clone()))
	return err
}

func (m *MongoCollection) Update(ctx context.Context, id string, set entity.Record) error {
	res, err := m.col.UpdateOne(ctx, bson.M{m.idField: id}, bson.M{"$set": bson.M(set.Clone())})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCollection) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{m.idField: id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toFilter(q Query) bson.M {
	filter := bson.M{}
	var and []bson.M
	for _, c := range q.Conditions {
		and = append(and, conditionFilter(c))
	}
	if len(q.AnyOf) > 0 {
		or := make([]bson.M, 0, len(q.AnyOf))
		for _, c := range q.AnyOf {
			or = append(or, conditionFilter(c))
		}
		and = append(and, bson.M{"$or": or})
	}
	switch len(and) {
	case 0:
	case 1:
		filter = and[0]
	default:
		filter["$and"] = and
	}
	return filter
}

func conditionFilter(c Condition) bson.M {
	switch c.Op {
	case OpNe:
		return bson.M{c.Field: bson.M{"$ne": c.Value}}
	case OpContainsFold:
		return bson.M{c.Field: bson.M{"$regex": regexp.QuoteMeta(fmt.Sprint(c.Value)), "$options": "i"}}
	default:
		// equality on an array field matches any element, which is exactly
		// array-contains
		return bson.M{c.Field: c.Value}
	}
}

func fromBSON(raw bson.M) entity.Record {
	delete(raw, "_id")
	return entity.Record(normalize(map[string]interface{}(raw)).(map[string]interface{}))
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return normalize(map[string]interface{}(t))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	}
	return v
}
