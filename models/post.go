package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStatus string

const (
	StatusBelumDilaksanakan  PostStatus = "Belum Dilaksanakan"
	StatusSedangDilaksanakan PostStatus = "Sedang Dilaksanakan"
	StatusTelahDilaksanakan  PostStatus = "Telah Dilaksanakan"
)

// PublicStatuses are the states a registrant may see when browsing another
// organizer's posts.
var PublicStatuses = []PostStatus{StatusBelumDilaksanakan, StatusSedangDilaksanakan}

var Categories = []string{
	"Akademik",
	"Non-Akademik",
	"Seni",
	"Olahraga",
	"Teknologi",
	"Bahasa",
	"Sains",
	"Matematika",
}

var Jenjangs = []string{"SD", "SMP", "SMA", "SMK", "Mahasiswa", "Umum"}

type Post struct {
	ObjectID    primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID          string             `bson:"id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Image       string             `bson:"image" json:"image"`
	Categories  []string           `bson:"categories" json:"categories"`
	Jenjangs    []string           `bson:"jenjangs" json:"jenjangs"`
	Creator     string             `bson:"creator" json:"creator"`
	Followers   []string           `bson:"followers" json:"followers"`
	Pelaksanaan time.Time          `bson:"pelaksanaan" json:"pelaksanaan"`
	Link        string             `bson:"link,omitempty" json:"link,omitempty"`
	Status      PostStatus         `bson:"status" json:"status"`
	StartedAt   *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	EndedAt     *time.Time         `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (p Post) HasFollower(userID string) bool {
	for _, f := range p.Followers {
		if f == userID {
			return true
		}
	}
	return false
}

// PostView is a post with its creator resolved. A missing creator renders as
// null.
type PostView struct {
	Post
	Creator *CreatorSummary `json:"creator"`
}

// PostSummary is the projection embedded in notifications.
type PostSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Image       string     `json:"image"`
	Pelaksanaan time.Time  `json:"pelaksanaan"`
	Status      PostStatus `json:"status"`
}

func (p Post) Summary() *PostSummary {
	return &PostSummary{
		ID:          p.ID,
		Title:       p.Title,
		Image:       p.Image,
		Pelaksanaan: p.Pelaksanaan,
		Status:      p.Status,
	}
}

// PostUpdate lists the editable fields of a post; nil means unchanged.
type PostUpdate struct {
	Title       *string
	Description *string
	Categories  []string
	Jenjangs    []string
	Pelaksanaan *time.Time
	Link        *string
	Image       *string
}

func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Categories == nil &&
		u.Jenjangs == nil && u.Pelaksanaan == nil && u.Link == nil && u.Image == nil
}

// ParseList decodes a list submitted through a form. A single value holding
// a JSON array is decoded; a single plain value is split on commas; several
// values are taken as-is.
func ParseList(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) > 1 {
		return trimAll(values), nil
	}

	raw := strings.TrimSpace(values[0])
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", raw, err)
		}
		return trimAll(out), nil
	}
	return trimAll(strings.Split(raw, ",")), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FilterAllowed keeps the values that belong to allowed, dropping duplicates
// and preserving order.
func FilterAllowed(values, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := set[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Invalid returns the values that are not in allowed.
func Invalid(values, allowed []string) []string {
	var bad []string
	for _, v := range values {
		found := false
		for _, a := range allowed {
			if v == a {
				found = true
				break
			}
		}
		if !found {
			bad = append(bad, v)
		}
	}
	return bad
}

func IsCategory(v string) bool { return len(Invalid([]string{v}, Categories)) == 0 }

func IsJenjang(v string) bool { return len(Invalid([]string{v}, Jenjangs)) == 0 }

var linkPattern = regexp.MustCompile(`(?i)^(https?://)?` +
	`((([a-z\d]([a-z\d-]*[a-z\d])*)\.)+[a-z]{2,}|((\d{1,3}\.){3}\d{1,3}))` +
	`(:\d+)?(/[-a-z\d%_.~+]*)*` +
	`(\?[;&a-z\d%_.~+=-]*)?` +
	`(#[-a-z\d_]*)?$`)

// IsValidLink accepts an empty link or a host-based URL with an optional
// http(s) scheme.
func IsValidLink(link string) bool {
	return link == "" || linkPattern.MatchString(link)
}

var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseSchedule parses a pelaksanaan value. Layouts without a zone are read
// in loc.
func ParseSchedule(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range scheduleLayouts[1:] {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid pelaksanaan format %q, use RFC3339 or YYYY-MM-DD", raw)
}
