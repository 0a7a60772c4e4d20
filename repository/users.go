package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/berprestasi/lomba-api/models"
)

type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection(UsersCollection)}
}

func (s *MongoUserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		return duplicateUserError(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ObjectID = oid
	}
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	cursor, err := s.col.Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoUserStore) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate, now time.Time) (*models.User, error) {
	update := bson.M{"updatedAt": now}
	if upd.Name != "" {
		update["name"] = upd.Name
	}
	if upd.Email != "" {
		update["email"] = strings.ToLower(strings.TrimSpace(upd.Email))
	}
	if upd.Nomor != "" {
		update["nomor"] = upd.Nomor
	}
	if upd.ProfilePicture != "" {
		update["profilePicture"] = upd.ProfilePicture
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.col.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": update}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, duplicateUserError(err)
	}
	return &user, nil
}

func (s *MongoUserStore) UpdatePassword(ctx context.Context, id, hash string, now time.Time) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"password": hash, "updatedAt": now}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// duplicateUserError maps unique-index violations to the matching sentinel.
func duplicateUserError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("write user: %w", err)
	}
	if strings.Contains(err.Error(), "email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateID
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
