package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/berprestasi/lomba-api/models"
)

type MongoPostStore struct {
	col *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{col: db.Collection(PostsCollection)}
}

func (s *MongoPostStore) Create(ctx context.Context, p *models.Post) error {
	if p.Followers == nil {
		p.Followers = []string{}
	}
	res, err := s.col.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert post: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ObjectID = oid
	}
	return nil
}

func (s *MongoPostStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.col.FindOne(ctx, bson.M{"id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

func postQuery(f PostFilter) bson.M {
	filter := bson.M{}
	if f.IDs != nil {
		filter["id"] = bson.M{"$in": f.IDs}
	}
	if f.Creator != "" {
		filter["creator"] = f.Creator
	}
	if f.Category != "" {
		filter["categories"] = f.Category
	}
	if f.Jenjang != "" {
		filter["jenjangs"] = f.Jenjang
	}
	if f.Follower != "" {
		filter["followers"] = f.Follower
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return filter
}

func (s *MongoPostStore) Find(ctx context.Context, f PostFilter) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.find(ctx, postQuery(f), opts)
}

func (s *MongoPostStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (s *MongoPostStore) Update(ctx context.Context, id string, upd models.PostUpdate, now time.Time) (*models.Post, error) {
	update := bson.M{"updatedAt": now}
	if upd.Title != nil {
		update["title"] = *upd.Title
	}
	if upd.Description != nil {
		update["description"] = *upd.Description
	}
	if upd.Categories != nil {
		update["categories"] = upd.Categories
	}
	if upd.Jenjangs != nil {
		update["jenjangs"] = upd.Jenjangs
	}
	if upd.Pelaksanaan != nil {
		update["pelaksanaan"] = *upd.Pelaksanaan
	}
	if upd.Link != nil {
		update["link"] = *upd.Link
	}
	if upd.Image != nil {
		update["image"] = *upd.Image
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := s.col.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": update}, opts).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &post, nil
}

func (s *MongoPostStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPostStore) AddFollower(ctx context.Context, postID, userID string, now time.Time) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"id": postID, "followers": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"followers": userID},
			"$set":      bson.M{"updatedAt": now},
		},
		opts,
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.missOr(ctx, postID, ErrAlreadyFollowing)
		}
		return nil, fmt.Errorf("follow post: %w", err)
	}
	return &post, nil
}

func (s *MongoPostStore) RemoveFollower(ctx context.Context, postID, userID string, now time.Time) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"id": postID, "followers": userID},
		bson.M{
			"$pull": bson.M{"followers": userID},
			"$set":  bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return fmt.Errorf("unfollow post: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missOr(ctx, postID, ErrNotFollowing)
	}
	return nil
}

// missOr tells a missing post apart from a guarded no-op.
func (s *MongoPostStore) missOr(ctx context.Context, postID string, sentinel error) error {
	n, err := s.col.CountDocuments(ctx, bson.M{"id": postID})
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return sentinel
}

func (s *MongoPostStore) FindScheduled(ctx context.Context, from, to time.Time, status models.PostStatus) ([]models.Post, error) {
	filter := bson.M{
		"status":      status,
		"pelaksanaan": bson.M{"$gte": from, "$lt": to},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "pelaksanaan", Value: 1}}))
}

func (s *MongoPostStore) StartDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{
			"status":      models.StatusBelumDilaksanakan,
			"pelaksanaan": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{
			"status":    models.StatusSedangDilaksanakan,
			"startedAt": now,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("start due posts: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoPostStore) ConcludeOverdue(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{
			"status":      models.StatusSedangDilaksanakan,
			"pelaksanaan": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{
			"status":    models.StatusTelahDilaksanakan,
			"endedAt":   now,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("conclude overdue posts: %w", err)
	}
	return res.ModifiedCount, nil
}
