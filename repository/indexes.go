package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/berprestasi/lomba-api/models"
)

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
// It is safe to call on every start. The partial reminder index needs
// MongoDB 6.0 or newer.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "creator", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "pelaksanaan", Value: 1}}},
		},
		NotificationsCollection: {
			{
				Keys: bson.D{
					{Key: "userId", Value: 1},
					{Key: "postId", Value: 1},
					{Key: "message", Value: 1},
					{Key: "type", Value: 1},
				},
				// follow notifications repeat on re-follow; only reminders are unique
				Options: options.Index().
					SetUnique(true).
					SetName("reminder_dedup").
					SetPartialFilterExpression(bson.M{"type": bson.M{"$in": bson.A{
						string(models.NotificationUpcoming),
						string(models.NotificationToday),
					}}}),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
