// internal/app/store/identityctx/mongo.go
package identityctx

import (
	"context"
	"errors"

	"github.com/dalemusser/identitymongo/internal/app/system/txn"
	"github.com/dalemusser/identitymongo/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names used when Options leaves them blank.
const (
	DefaultUsersCollection = "users"
	DefaultRolesCollection = "roles"
)

// Options names the collections a Mongo-backed Context uses.
type Options struct {
	UsersCollection string
	RolesCollection string
}

// NewMongo returns a Context persisting to db. SaveChanges runs each batch
// in a transaction when the deployment supports one.
func NewMongo[K comparable](db *mongo.Database, opts Options, logger *zap.Logger) *Context[K] {
	if opts.UsersCollection == "" {
		opts.UsersCollection = DefaultUsersCollection
	}
	if opts.RolesCollection == "" {
		opts.RolesCollection = DefaultRolesCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	run := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return txn.Run(ctx, db, logger, fn)
	}
	return newContext[K](
		&mongoCollection[models.User[K], K]{c: db.Collection(opts.UsersCollection)},
		&mongoCollection[models.Role[K], K]{c: db.Collection(opts.RolesCollection)},
		run,
		logger,
	)
}

type mongoCollection[T any, K comparable] struct {
	c *mongo.Collection
}

func (m *mongoCollection[T, K]) FindID(ctx context.Context, id K) (*T, error) {
	var doc T
	if err := m.c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (m *mongoCollection[T, K]) FindEq(ctx context.Context, field string, value any, limit int64) ([]*T, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return m.find(ctx, bson.M{field: value}, opts)
}

func (m *mongoCollection[T, K]) FindIn(ctx context.Context, field string, values []K) ([]*T, error) {
	return m.find(ctx, bson.M{field: bson.M{"$in": values}}, options.Find())
}

func (m *mongoCollection[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	return m.find(ctx, bson.M{}, options.Find())
}

func (m *mongoCollection[T, K]) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*T, error) {
	cur, err := m.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *mongoCollection[T, K]) Count(ctx context.Context) (int64, error) {
	return m.c.CountDocuments(ctx, bson.M{})
}

func (m *mongoCollection[T, K]) Insert(ctx context.Context, doc *T) error {
	_, err := m.c.InsertOne(ctx, doc)
	return err
}

func (m *mongoCollection[T, K]) Replace(ctx context.Context, id K, stamp string, doc *T) (bool, error) {
	res, err := m.c.ReplaceOne(ctx, bson.M{"_id": id, StampField: stamp}, doc)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (m *mongoCollection[T, K]) Delete(ctx context.Context, id K, stamp string) (bool, error) {
	res, err := m.c.DeleteOne(ctx, bson.M{"_id": id, StampField: stamp})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
