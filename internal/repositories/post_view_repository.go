package repositories

import (
	"context"
	"time"

	"github.com/anonto42/social-graph/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostViewRepository stores one record per (post, user, ip) viewer.
type PostViewRepository interface {
	RecordView(ctx context.Context, postID, userID uint, ip string) error
	CountViews(ctx context.Context, postID uint) (int64, error)
	CountByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	GetRecentViews(ctx context.Context, postID uint, limit int64) ([]models.PostView, error)
	DeleteByPostID(ctx context.Context, postID uint) error
}

// MongoPostViewRepository implements PostViewRepository for MongoDB
type MongoPostViewRepository struct {
	collection *mongo.Collection
}

// NewMongoPostViewRepository creates a new MongoPostViewRepository
func NewMongoPostViewRepository(db *mongo.Database) *MongoPostViewRepository {
	return &MongoPostViewRepository{collection: db.Collection("post_views")}
}

// EnsureIndexes creates the viewer uniqueness index.
func (r *MongoPostViewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "ip_address", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "viewed_at", Value: -1}}},
	})
	return err
}

// RecordView is an upsert: repeat views by the same viewer keep the first timestamp.
func (r *MongoPostViewRepository) RecordView(ctx context.Context, postID, userID uint, ip string) error {
	filter := bson.M{"post_id": postID, "user_id": userID, "ip_address": ip}
	update := bson.M{"$setOnInsert": bson.M{"viewed_at": time.Now().UTC()}}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *MongoPostViewRepository) CountViews(ctx context.Context, postID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"post_id": postID})
}

func (r *MongoPostViewRepository) CountByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"post_id": bson.M{"$in": postIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$post_id", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		PostID uint  `bson:"_id"`
		Count  int64 `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.Count
	}
	return out, nil
}

// GetRecentViews lists the latest viewers of a post.
func (r *MongoPostViewRepository) GetRecentViews(ctx context.Context, postID uint, limit int64) ([]models.PostView, error) {
	var views []models.PostView
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "viewed_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"post_id": postID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *MongoPostViewRepository) DeleteByPostID(ctx context.Context, postID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"post_id": postID})
	return err
}
