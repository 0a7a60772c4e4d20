package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/berprestasi/lomba-api/models"
)

type MongoNotificationStore struct {
	col *mongo.Collection
}

func NewMongoNotificationStore(db *mongo.Database) *MongoNotificationStore {
	return &MongoNotificationStore{col: db.Collection(NotificationsCollection)}
}

func (s *MongoNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	res, err := s.col.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return nil
}

func (s *MongoNotificationStore) CreateIfAbsent(ctx context.Context, n *models.Notification) (bool, error) {
	key := bson.M{
		"userId":  n.UserID,
		"postId":  n.PostID,
		"message": n.Message,
		"type":    n.Type,
	}
	doc := bson.M{
		"isRead":    n.IsRead,
		"createdAt": n.CreatedAt,
		"updatedAt": n.UpdatedAt,
	}
	if n.FollowerID != "" {
		doc["followerId"] = n.FollowerID
	}

	res, err := s.col.UpdateOne(ctx, key, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil {
		// a concurrent tick won the race on the unique index
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("upsert notification: %w", err)
	}
	if res.UpsertedCount == 0 {
		return false, nil
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return true, nil
}

func notificationQuery(f NotificationFilter) bson.M {
	filter := bson.M{"userId": f.UserID}
	if len(f.Types) > 0 {
		filter["type"] = bson.M{"$in": f.Types}
	}
	if f.UnreadOnly {
		filter["isRead"] = false
	}
	return filter
}

func (s *MongoNotificationStore) Find(ctx context.Context, f NotificationFilter) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.col.Find(ctx, notificationQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return notifications, nil
}

func (s *MongoNotificationStore) MarkRead(ctx context.Context, f NotificationFilter, id primitive.ObjectID, now time.Time) error {
	filter := notificationQuery(f)
	filter["_id"] = id
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"isRead": true, "updatedAt": now}})
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoNotificationStore) MarkAllRead(ctx context.Context, f NotificationFilter, now time.Time) (int64, error) {
	f.UnreadOnly = true
	res, err := s.col.UpdateMany(ctx, notificationQuery(f), bson.M{"$set": bson.M{"isRead": true, "updatedAt": now}})
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoNotificationStore) Delete(ctx context.Context, f NotificationFilter, id primitive.ObjectID) error {
	filter := notificationQuery(f)
	filter["_id"] = id
	res, err := s.col.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoNotificationStore) DeleteAll(ctx context.Context, f NotificationFilter) (int64, error) {
	res, err := s.col.DeleteMany(ctx, notificationQuery(f))
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.DeletedCount, nil
}
