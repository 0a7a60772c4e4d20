package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/berprestasi/lomba-api/models"
)

// MemoryStore keeps every collection in process. It backs STORE_DRIVER=memory
// and the handler tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         []models.User
	posts         []models.Post
	notifications []models.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Users() UserStore                 { return memoryUsers{m} }
func (m *MemoryStore) Posts() PostStore                 { return memoryPosts{m} }
func (m *MemoryStore) Notifications() NotificationStore { return memoryNotifications{m} }

// ---------------- USERS ----------------

type memoryUsers struct{ m *MemoryStore }

func (s memoryUsers) Create(_ context.Context, u *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.m.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
		if existing.ID == u.ID {
			return ErrDuplicateID
		}
	}
	u.ObjectID = primitive.NewObjectID()
	s.m.users = append(s.m.users, *u)
	return nil
}

func (s memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s memoryUsers) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.User{}
	for _, u := range s.m.users {
		if _, ok := want[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s memoryUsers) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate, now time.Time) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	idx := -1
	for i, u := range s.m.users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	u := s.m.users[idx]
	if upd.Email != "" {
		email := strings.ToLower(strings.TrimSpace(upd.Email))
		for i, other := range s.m.users {
			if i != idx && other.Email == email {
				return nil, ErrDuplicateEmail
			}
		}
		u.Email = email
	}
	if upd.Name != "" {
		u.Name = upd.Name
	}
	if upd.Nomor != "" {
		u.Nomor = upd.Nomor
	}
	if upd.ProfilePicture != "" {
		u.ProfilePicture = upd.ProfilePicture
	}
	u.UpdatedAt = now
	s.m.users[idx] = u

	out := u
	return &out, nil
}

func (s memoryUsers) UpdatePassword(_ context.Context, id, hash string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i := range s.m.users {
		if s.m.users[i].ID == id {
			s.m.users[i].Password = hash
			s.m.users[i].UpdatedAt = now
			return nil
		}
	}
	return ErrNotFound
}

// ---------------- POSTS ----------------

type memoryPosts struct{ m *MemoryStore }

func (s memoryPosts) index(id string) int {
	for i, p := range s.m.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s memoryPosts) Create(_ context.Context, p *models.Post) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.index(p.ID) >= 0 {
		return ErrDuplicateID
	}
	if p.Followers == nil {
		p.Followers = []string{}
	}
	p.ObjectID = primitive.NewObjectID()
	s.m.posts = append(s.m.posts, clonePost(*p))
	return nil
}

func (s memoryPosts) FindByID(_ context.Context, id string) (*models.Post, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	out := clonePost(s.m.posts[i])
	return &out, nil
}

func (f PostFilter) matches(p models.Post) bool {
	if f.IDs != nil && !contains(f.IDs, p.ID) {
		return false
	}
	if f.Creator != "" && p.Creator != f.Creator {
		return false
	}
	if f.Category != "" && !contains(p.Categories, f.Category) {
		return false
	}
	if f.Jenjang != "" && !contains(p.Jenjangs, f.Jenjang) {
		return false
	}
	if f.Follower != "" && !contains(p.Followers, f.Follower) {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if p.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (s memoryPosts) Find(_ context.Context, f PostFilter) ([]models.Post, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.Post{}
	for _, p := range s.m.posts {
		if f.matches(p) {
			out = append(out, clonePost(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memoryPosts) Update(_ context.Context, id string, upd models.PostUpdate, now time.Time) (*models.Post, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	p := s.m.posts[i]
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Categories != nil {
		p.Categories = append([]string{}, upd.Categories...)
	}
	if upd.Jenjangs != nil {
		p.Jenjangs = append([]string{}, upd.Jenjangs...)
	}
	if upd.Pelaksanaan != nil {
		p.Pelaksanaan = *upd.Pelaksanaan
	}
	if upd.Link != nil {
		p.Link = *upd.Link
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}
	p.UpdatedAt = now
	s.m.posts[i] = p

	out := clonePost(p)
	return &out, nil
}

func (s memoryPosts) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.m.posts = append(s.m.posts[:i], s.m.posts[i+1:]...)
	return nil
}

func (s memoryPosts) AddFollower(_ context.Context, postID, userID string, now time.Time) (*models.Post, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i := s.index(postID)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := &s.m.posts[i]
	if contains(p.Followers, userID) {
		return nil, ErrAlreadyFollowing
	}
	p.Followers = append(append([]string{}, p.Followers...), userID)
	p.UpdatedAt = now
	out := clonePost(*p)
	return &out, nil
}

func (s memoryPosts) RemoveFollower(_ context.Context, postID, userID string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i := s.index(postID)
	if i < 0 {
		return ErrNotFound
	}
	p := &s.m.posts[i]
	if !contains(p.Followers, userID) {
		return ErrNotFollowing
	}
	kept := make([]string, 0, len(p.Followers)-1)
	for _, f := range p.Followers {
		if f != userID {
			kept = append(kept, f)
		}
	}
	p.Followers = kept
	p.UpdatedAt = now
	return nil
}

func (s memoryPosts) FindScheduled(_ context.Context, from, to time.Time, status models.PostStatus) ([]models.Post, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.Post{}
	for _, p := range s.m.posts {
		if p.Status == status && !p.Pelaksanaan.Before(from) && p.Pelaksanaan.Before(to) {
			out = append(out, clonePost(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pelaksanaan.Before(out[j].Pelaksanaan) })
	return out, nil
}

func (s memoryPosts) StartDue(_ context.Context, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for i := range s.m.posts {
		p := &s.m.posts[i]
		if p.Status == models.StatusBelumDilaksanakan && !p.Pelaksanaan.After(now) {
			started := now
			p.Status = models.StatusSedangDilaksanakan
			p.StartedAt = &started
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s memoryPosts) ConcludeOverdue(_ context.Context, cutoff, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for i := range s.m.posts {
		p := &s.m.posts[i]
		if p.Status == models.StatusSedangDilaksanakan && p.Pelaksanaan.Before(cutoff) {
			ended := now
			p.Status = models.StatusTelahDilaksanakan
			p.EndedAt = &ended
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func clonePost(p models.Post) models.Post {
	p.Categories = append([]string(nil), p.Categories...)
	p.Jenjangs = append([]string(nil), p.Jenjangs...)
	p.Followers = append([]string{}, p.Followers...)
	return p
}

// ---------------- NOTIFICATIONS ----------------

type memoryNotifications struct{ m *MemoryStore }

func (f NotificationFilter) matches(n models.Notification) bool {
	if n.UserID != f.UserID {
		return false
	}
	if f.UnreadOnly && n.IsRead {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if n.Type == t {
			return true
		}
	}
	return false
}

func (s memoryNotifications) Create(_ context.Context, n *models.Notification) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n.ID = primitive.NewObjectID()
	s.m.notifications = append(s.m.notifications, *n)
	return nil
}

func (s memoryNotifications) CreateIfAbsent(_ context.Context, n *models.Notification) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.notifications {
		if existing.UserID == n.UserID && existing.PostID == n.PostID &&
			existing.Message == n.Message && existing.Type == n.Type {
			return false, nil
		}
	}
	n.ID = primitive.NewObjectID()
	s.m.notifications = append(s.m.notifications, *n)
	return true, nil
}

func (s memoryNotifications) Find(_ context.Context, f NotificationFilter) ([]models.Notification, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range s.m.notifications {
		if f.matches(n) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memoryNotifications) MarkRead(_ context.Context, f NotificationFilter, id primitive.ObjectID, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i := range s.m.notifications {
		n := &s.m.notifications[i]
		if n.ID == id && f.matches(*n) {
			n.IsRead = true
			n.UpdatedAt = now
			return nil
		}
	}
	return ErrNotFound
}

func (s memoryNotifications) MarkAllRead(_ context.Context, f NotificationFilter, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f.UnreadOnly = true
	var count int64
	for i := range s.m.notifications {
		n := &s.m.notifications[i]
		if f.matches(*n) {
			n.IsRead = true
			n.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (s memoryNotifications) Delete(_ context.Context, f NotificationFilter, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i, n := range s.m.notifications {
		if n.ID == id && f.matches(n) {
			s.m.notifications = append(s.m.notifications[:i], s.m.notifications[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s memoryNotifications) DeleteAll(_ context.Context, f NotificationFilter) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	kept := s.m.notifications[:0]
	var count int64
	for _, n := range s.m.notifications {
		if f.matches(n) {
			count++
			continue
		}
		kept = append(kept, n)
	}
	s.m.notifications = kept
	return count, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
