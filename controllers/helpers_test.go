package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	config "github.com/berprestasi/lomba-api/config"
	"github.com/berprestasi/lomba-api/controllers"
	"github.com/berprestasi/lomba-api/middleware"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/routes"
	"github.com/berprestasi/lomba-api/scheduler"
	"github.com/berprestasi/lomba-api/storage"
)

var jakarta = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		panic(err)
	}
	return loc
}()

func init() {
	gin.SetMode(gin.TestMode)
}

type published struct {
	items []*models.Notification
}

func (p *published) PublishNotification(n *models.Notification) error {
	p.items = append(p.items, n)
	return nil
}

func (p *published) Close() {}

type testApp struct {
	t          *testing.T
	r          *gin.Engine
	store      *repository.MemoryStore
	reconciler *scheduler.Reconciler
	events     *published
	dir        string
	clock      time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithPosts(t, nil)
}

// newTestAppWithPosts lets a test wrap the post store the handlers see.
func newTestAppWithPosts(t *testing.T, wrap func(repository.PostStore) repository.PostStore) *testApp {
	t.Helper()

	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &testApp{
		t:      t,
		store:  repository.NewMemoryStore(),
		events: &published{},
		dir:    dir,
		clock:  time.Now(),
	}
	now := func() time.Time { return app.clock }

	app.reconciler = &scheduler.Reconciler{
		Posts:         app.store.Posts(),
		Notifications: app.store.Notifications(),
		Users:         app.store.Users(),
		Publisher:     app.events,
		Location:      jakarta,
		Now:           now,
		Log:           log,
	}

	cfg := &config.Config{
		JWTSecret:     []byte("test-secret"),
		TokenTTL:      time.Hour,
		StorageDriver: config.StorageLocal,
		UploadDir:     dir,
		Location:      jakarta,
	}

	var posts repository.PostStore = app.store.Posts()
	if wrap != nil {
		posts = wrap(posts)
	}

	app.r = gin.New()
	app.r.Use(middleware.Recovery(log))
	routes.SetupRoutes(app.r, &controllers.Env{
		Cfg:           cfg,
		Users:         app.store.Users(),
		Posts:         posts,
		Notifications: app.store.Notifications(),
		Images:        images,
		Publisher:     app.events,
		Reconciler:    app.reconciler,
		Log:           log,
		Now:           now,
	})
	return app
}

type envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	Error        string          `json:"error"`
	Token        string          `json:"token"`
	UnreadCount  int             `json:"unreadCount"`
	DeletedCount int64           `json:"deletedCount"`
}

type upload struct {
	field, name string
	content     []byte
}

func (a *testApp) do(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testApp) json(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

func (a *testApp) form(method, path, token string, fields map[string]string, files ...upload) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(a.t, err)
		_, err = part.Write(f.content)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, token)
}

func (a *testApp) get(path, token string) (*httptest.ResponseRecorder, envelope) {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), token)
}

// register creates an account and logs in, returning the user id and token.
func (a *testApp) register(name, email string, role models.Role) (string, string) {
	a.t.Helper()
	w, body := a.json(http.MethodPost, "/user/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "rahasia123",
		"nomor":    "08123456789",
		"role":     string(role),
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var user models.PublicUser
	require.NoError(a.t, json.Unmarshal(body.Data, &user))

	w, body = a.json(http.MethodPost, "/user/auth/login", "", map[string]string{
		"email":    email,
		"password": "rahasia123",
	})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(a.t, body.Token)
	return user.ID, body.Token
}

func (a *testApp) createPost(token, title string, at time.Time) models.PostView {
	a.t.Helper()
	w, body := a.form(http.MethodPost, "/post", token, map[string]string{
		"title":       title,
		"description": "Deskripsi " + title,
		"categories":  `["Seni","Teknologi"]`,
		"jenjangs":    `["SMA"]`,
		"pelaksanaan": at.Format(time.RFC3339),
		"link":        "https://lomba.example.id/daftar",
	}, upload{field: "image", name: "poster.png", content: []byte("png-bytes")})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var post models.PostView
	require.NoError(a.t, json.Unmarshal(body.Data, &post))
	return post
}

func (a *testApp) post(id string) *models.Post {
	a.t.Helper()
	p, err := a.store.Posts().FindByID(context.Background(), id)
	require.NoError(a.t, err)
	return p
}

func (a *testApp) files(folder string) []string {
	a.t.Helper()
	entries, err := os.ReadDir(filepath.Join(a.dir, folder))
	require.NoError(a.t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func registrantFilter(userID string) repository.NotificationFilter {
	return repository.NotificationFilter{UserID: userID, Types: models.RegistrantTypes}
}
