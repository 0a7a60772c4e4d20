// Package repository persists users, posts and notifications.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/berprestasi/lomba-api/models"
)

const (
	UsersCollection         = "users"
	PostsCollection         = "posts"
	NotificationsCollection = "notifications"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrAlreadyFollowing = errors.New("already following this post")
	ErrNotFollowing     = errors.New("not following this post")
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByIDs resolves many users in one round trip. Unknown ids are
	// skipped.
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate, now time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, id, hash string, now time.Time) error
}

// PostFilter narrows Find; zero fields are ignored.
type PostFilter struct {
	IDs      []string
	Creator  string
	Category string
	Jenjang  string
	Follower string
	Statuses []models.PostStatus
}

type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	// Find returns matching posts, newest first.
	Find(ctx context.Context, f PostFilter) ([]models.Post, error)
	Update(ctx context.Context, id string, upd models.PostUpdate, now time.Time) (*models.Post, error)
	Delete(ctx context.Context, id string) error

	// AddFollower appends userID only when absent, atomically, and returns
	// the post as written.
	AddFollower(ctx context.Context, postID, userID string, now time.Time) (*models.Post, error)
	// RemoveFollower pulls userID only when present, atomically.
	RemoveFollower(ctx context.Context, postID, userID string, now time.Time) error

	// FindScheduled returns posts in status whose pelaksanaan is in
	// [from, to).
	FindScheduled(ctx context.Context, from, to time.Time, status models.PostStatus) ([]models.Post, error)
	// StartDue moves not-yet-held posts scheduled at or before now to in
	// progress and stamps startedAt.
	StartDue(ctx context.Context, now time.Time) (int64, error)
	// ConcludeOverdue moves in-progress posts scheduled before cutoff to
	// concluded and stamps endedAt with now.
	ConcludeOverdue(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// NotificationFilter scopes reads and bulk writes to one recipient and,
// optionally, a set of kinds.
type NotificationFilter struct {
	UserID     string
	Types      []models.NotificationType
	UnreadOnly bool
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	// CreateIfAbsent inserts n unless a notification with the same
	// recipient, post, message and type exists. It reports whether a row
	// was inserted.
	CreateIfAbsent(ctx context.Context, n *models.Notification) (bool, error)
	// Find returns matching notifications, newest first.
	Find(ctx context.Context, f NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, f NotificationFilter, id primitive.ObjectID, now time.Time) error
	MarkAllRead(ctx context.Context, f NotificationFilter, now time.Time) (int64, error)
	Delete(ctx context.Context, f NotificationFilter, id primitive.ObjectID) error
	DeleteAll(ctx context.Context, f NotificationFilter) (int64, error)
}
