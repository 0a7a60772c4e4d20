package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationUpcoming NotificationType = "upcoming"
	NotificationToday    NotificationType = "today"
	NotificationGeneral  NotificationType = "general"
	NotificationFollow   NotificationType = "follow"
)

// RegistrantTypes are shown on the registrant notification page; FollowTypes
// on the organizer page.
var (
	RegistrantTypes = []NotificationType{NotificationUpcoming, NotificationToday, NotificationGeneral}
	FollowTypes     = []NotificationType{NotificationFollow}
)

type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID     string             `bson:"userId" json:"userId"`
	PostID     string             `bson:"postId,omitempty" json:"postId,omitempty"`
	FollowerID string             `bson:"followerId,omitempty" json:"followerId,omitempty"`
	Message    string             `bson:"message" json:"message"`
	Type       NotificationType   `bson:"type" json:"type"`
	IsRead     bool               `bson:"isRead" json:"isRead"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ReminderView is a registrant notification with its post resolved under the
// postId key.
type ReminderView struct {
	ID        primitive.ObjectID `json:"_id"`
	UserID    string             `json:"userId"`
	PostID    *PostSummary       `json:"postId"`
	Message   string             `json:"message"`
	Type      NotificationType   `json:"type"`
	IsRead    bool               `json:"isRead"`
	CreatedAt time.Time          `json:"createdAt"`
}

// FollowView is an organizer notification with the followed post and the
// follower resolved.
type FollowView struct {
	ID        primitive.ObjectID `json:"_id"`
	UserID    string             `json:"userId"`
	Post      *PostSummary       `json:"post"`
	Follower  *PublicUser        `json:"follower"`
	Message   string             `json:"message"`
	Type      NotificationType   `json:"type"`
	IsRead    bool               `json:"isRead"`
	CreatedAt time.Time          `json:"createdAt"`
}

func FollowMessage(followerName, postTitle string) string {
	return followerName + " mengikuti lomba " + postTitle
}

func UpcomingMessage(postTitle string) string {
	return "Lomba " + postTitle + " akan dilaksanakan besok!"
}

func TodayMessage(postTitle string) string {
	return "Lomba " + postTitle + " dimulai hari ini!"
}
