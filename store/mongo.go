package store

import (
	"context"
	"errors"
	"fmt"

	"agrowatch/models"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps users and farms in MongoDB. Integer ids come from a
// counters collection so they match the SQL backends.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	farms    *mongo.Collection
	counters *mongo.Collection
	clock    clockwork.Clock
}

// OpenMongo connects and ensures indexes.
func OpenMongo(ctx context.Context, uri, database string, clock clockwork.Clock) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	db := client.Database(database)

	s := &MongoStore{
		client:   client,
		users:    db.Collection("users"),
		farms:    db.Collection("farms"),
		counters: db.Collection("counters"),
		clock:    clock,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	if _, err := s.farms.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "area", Value: "2dsphere"}}},
	}); err != nil {
		return fmt.Errorf("farms indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return c.Seq, nil
}

func (s *MongoStore) CreateFarm(ctx context.Context, f models.Farm) (models.Farm, error) {
	id, err := s.nextID(ctx, "farms")
	if err != nil {
		return models.Farm{}, err
	}
	f.ID = id
	f.CreatedAt = now(s.clock)
	f.UpdatedAt = f.CreatedAt
	if _, err := s.farms.InsertOne(ctx, &f); err != nil {
		return models.Farm{}, fmt.Errorf("insert farm: %w", err)
	}
	return f, nil
}

func (s *MongoStore) GetFarm(ctx context.Context, ownerID, id int64) (models.Farm, error) {
	var f models.Farm
	if err := s.farms.FindOne(ctx, bson.M{"_id": id, "ownerId": ownerID}).Decode(&f); err != nil {
		return models.Farm{}, notFound(err, "get farm")
	}
	return utcFarm(f), nil
}

func (s *MongoStore) UpdateFarm(ctx context.Context, f models.Farm) (models.Farm, error) {
	res := s.farms.FindOneAndUpdate(ctx,
		bson.M{"_id": f.ID, "ownerId": f.OwnerID},
		bson.M{"$set": bson.M{
			"name":      f.Name,
			"crop":      f.Crop,
			"area":      f.Area,
			"updatedAt": now(s.clock),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out models.Farm
	if err := res.Decode(&out); err != nil {
		return models.Farm{}, notFound(err, "update farm")
	}
	return utcFarm(out), nil
}

func (s *MongoStore) DeleteFarm(ctx context.Context, ownerID, id int64) error {
	res, err := s.farms.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return fmt.Errorf("delete farm %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListFarms(ctx context.Context, ownerID int64) ([]models.Farm, error) {
	cur, err := s.farms.Find(ctx, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Farm{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode farms: %w", err)
	}
	for i := range out {
		out[i] = utcFarm(out[i])
	}
	return out, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	id, err := s.nextID(ctx, "users")
	if err != nil {
		return models.User{}, err
	}
	u.ID = id
	u.CreatedAt = now(s.clock)
	if _, err := s.users.InsertOne(ctx, &u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.user(ctx, bson.M{"email": email})
}

func (s *MongoStore) UserByID(ctx context.Context, id int64) (models.User, error) {
	return s.user(ctx, bson.M{"_id": id})
}

func (s *MongoStore) user(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return models.User{}, notFound(err, "get user")
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func notFound(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func utcFarm(f models.Farm) models.Farm {
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return f
}
