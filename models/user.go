package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RolePendaftar     Role = "pendaftar"
	RolePenyelenggara Role = "penyelenggara"
	RoleAdmin         Role = "admin"
)

// DefaultProfilePicture is assigned at registration when no picture is
// uploaded. It is never removed from storage.
const DefaultProfilePicture = "/uploads/profiles/default-avatar.png"

// Registrable reports whether r may be chosen at sign-up. Admin accounts are
// provisioned directly in the database.
func (r Role) Registrable() bool {
	return r == RolePendaftar || r == RolePenyelenggara
}

type User struct {
	ObjectID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID             string             `bson:"id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"`
	Nomor          string             `bson:"nomor" json:"nomor"`
	Role           Role               `bson:"role" json:"role"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the subset of a user that is safe to return to any caller.
type PublicUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Nomor          string    `json:"nomor"`
	Role           Role      `json:"role"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Nomor:          u.Nomor,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// CreatorSummary is the denormalized creator attached to post listings.
type CreatorSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (u User) Summary() *CreatorSummary {
	return &CreatorSummary{ID: u.ID, Name: u.Name, ProfilePicture: u.ProfilePicture}
}

// ProfileUpdate carries the mutable profile fields; empty strings are left
// unchanged.
type ProfileUpdate struct {
	Name           string
	Email          string
	Nomor          string
	ProfilePicture string
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == "" && p.Email == "" && p.Nomor == "" && p.ProfilePicture == ""
}
