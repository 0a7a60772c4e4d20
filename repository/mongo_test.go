package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	models "github.com/berprestasi/lomba-api/models"
)

func TestMongoUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create maps duplicate email", func(mt *mtest.T) {
		users := NewMongoUserStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: berprestasi.users index: email_1 dup key",
		}))

		err := users.Create(context.Background(), &models.User{ID: "U1", Email: "a@b.c"})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	mt.Run("create maps duplicate id", func(mt *mtest.T) {
		users := NewMongoUserStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: berprestasi.users index: id_1 dup key",
		}))

		err := users.Create(context.Background(), &models.User{ID: "U1", Email: "a@b.c"})
		require.ErrorIs(t, err, ErrDuplicateID)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		users := NewMongoUserStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "berprestasi.users", mtest.FirstBatch, bson.D{
			{Key: "id", Value: "U1"},
			{Key: "name", Value: "Ana"},
			{Key: "email", Value: "ana@mail.com"},
			{Key: "role", Value: "pendaftar"},
		}))

		u, err := users.FindByID(context.Background(), "U1")
		require.NoError(t, err)
		require.Equal(t, "Ana", u.Name)
		require.Equal(t, models.RolePendaftar, u.Role)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		users := NewMongoUserStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "berprestasi.users", mtest.FirstBatch))

		_, err := users.FindByID(context.Background(), "U404")
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("find by ids skips the round trip when empty", func(mt *mtest.T) {
		users := NewMongoUserStore(mt.DB)

		out, err := users.FindByIDs(context.Background(), []string{"", ""})
		require.NoError(t, err)
		require.Empty(t, out)
	})
}

func TestMongoPostStoreFollowers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("follow succeeds", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "id", Value: "P1"},
				{Key: "followers", Value: bson.A{"U0", "U1"}},
			}},
		})

		p, err := posts.AddFollower(context.Background(), "P1", "U1", base)
		require.NoError(t, err)
		require.Equal(t, []string{"U0", "U1"}, p.Followers)
	})

	mt.Run("follow twice", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "berprestasi.posts", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		_, err := posts.AddFollower(context.Background(), "P1", "U1", base)
		require.ErrorIs(t, err, ErrAlreadyFollowing)
	})

	mt.Run("follow missing post", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "berprestasi.posts", mtest.FirstBatch),
		)

		_, err := posts.AddFollower(context.Background(), "P404", "U1", base)
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("unfollow when not following", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "berprestasi.posts", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		err := posts.RemoveFollower(context.Background(), "P1", "U1", base)
		require.ErrorIs(t, err, ErrNotFollowing)
	})
}

func TestMongoPostStoreUpdates(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("update returns the new document", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "id", Value: "P1"},
				{Key: "title", Value: "Renamed"},
				{Key: "status", Value: string(models.StatusBelumDilaksanakan)},
			}},
		})

		title := "Renamed"
		p, err := posts.Update(context.Background(), "P1", models.PostUpdate{Title: &title}, base)
		require.NoError(t, err)
		require.Equal(t, "Renamed", p.Title)
	})

	mt.Run("update missing post", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})

		title := "x"
		_, err := posts.Update(context.Background(), "P404", models.PostUpdate{Title: &title}, base)
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("start due reports modified count", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 3},
		))

		n, err := posts.StartDue(context.Background(), base)
		require.NoError(t, err)
		require.EqualValues(t, 3, n)
	})

	mt.Run("delete missing post", func(mt *mtest.T) {
		posts := NewMongoPostStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		require.ErrorIs(t, posts.Delete(context.Background(), "P404"), ErrNotFound)
	})
}

func TestMongoNotificationStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	reminder := func() *models.Notification {
		return &models.Notification{
			UserID:  "U1",
			PostID:  "P1",
			Message: models.UpcomingMessage("Seni"),
			Type:    models.NotificationUpcoming,
		}
	}

	mt.Run("create if absent inserts", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: id}}}},
		))

		n := reminder()
		inserted, err := store.CreateIfAbsent(context.Background(), n)
		require.NoError(t, err)
		require.True(t, inserted)
		require.Equal(t, id, n.ID)
	})

	mt.Run("create if absent finds existing", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		inserted, err := store.CreateIfAbsent(context.Background(), reminder())
		require.NoError(t, err)
		require.False(t, inserted)
	})

	mt.Run("create if absent loses a race", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: berprestasi.notifications index: reminder_dedup",
		}))

		inserted, err := store.CreateIfAbsent(context.Background(), reminder())
		require.NoError(t, err)
		require.False(t, inserted)
	})

	mt.Run("mark read of a foreign notification", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := store.MarkRead(context.Background(), NotificationFilter{UserID: "U2"}, primitive.NewObjectID(), base)
		require.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("find decodes newest first", func(mt *mtest.T) {
		store := NewMongoNotificationStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "berprestasi.notifications", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "U1"}, {Key: "type", Value: "today"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "userId", Value: "U1"}, {Key: "type", Value: "upcoming"}},
		))

		list, err := store.Find(context.Background(), NotificationFilter{UserID: "U1", Types: models.RegistrantTypes})
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, models.NotificationToday, list[0].Type)
	})
}
