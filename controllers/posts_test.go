package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	models "github.com/berprestasi/lomba-api/models"
)

func TestCreatePostValidation(t *testing.T) {
	app := newTestApp(t)
	_, registrant := app.register("Ana", "ana@mail.com", models.RolePendaftar)
	_, organizer := app.register("Budi", "budi@mail.com", models.RolePenyelenggara)

	fields := func() map[string]string {
		return map[string]string{
			"title":       "Lomba Poster",
			"description": "Desain poster",
			"categories":  `["Seni"]`,
			"pelaksanaan": "2030-01-10",
		}
	}
	image := upload{field: "image", name: "a.png", content: []byte("x")}

	w, _ := app.form(http.MethodPost, "/post", registrant, fields(), image)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.form(http.MethodPost, "/post", "", fields(), image)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := app.form(http.MethodPost, "/post", organizer, fields())
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, body.Success)

	bad := fields()
	bad["categories"] = `["Seni", "Memasak"]`
	w, _ = app.form(http.MethodPost, "/post", organizer, bad, image)
	require.Equal(t, http.StatusBadRequest, w.Code)

	bad = fields()
	bad["categories"] = `["Seni"`
	w, _ = app.form(http.MethodPost, "/post", organizer, bad, image)
	require.Equal(t, http.StatusBadRequest, w.Code)

	bad = fields()
	bad["link"] = "not a link"
	w, _ = app.form(http.MethodPost, "/post", organizer, bad, image)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.form(http.MethodPost, "/post", organizer, fields(), upload{field: "image", name: "a.exe", content: []byte("x")})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, app.files("posts"))

	w, body = app.form(http.MethodPost, "/post", organizer, fields(), image)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.PostView
	require.NoError(t, json.Unmarshal(body.Data, &post))
	require.Equal(t, models.StatusBelumDilaksanakan, post.Status)
	require.Regexp(t, `^P\d{4}[0-9A-Z]{2}$`, post.ID)
	require.Equal(t, "Budi", post.Creator.Name)
	require.Empty(t, post.Followers)
	require.Equal(t, 2030, post.Pelaksanaan.In(jakarta).Year())
}

func TestListingAndETag(t *testing.T) {
	app := newTestApp(t)
	_, organizer := app.register("Budi", "budi@mail.com", models.RolePenyelenggara)
	first := app.createPost(organizer, "Lomba A", app.clock.Add(72*time.Hour))
	app.clock = app.clock.Add(time.Second)
	app.createPost(organizer, "Lomba B", app.clock.Add(72*time.Hour))

	w, body := app.get("/post", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.PostView
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list, 2)
	require.Equal(t, "Lomba B", list[0].Title)
	require.Equal(t, "Budi", list[1].Creator.Name)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	req.Header.Set("If-None-Match", etag)
	w, _ = app.do(req, "")
	require.Equal(t, http.StatusNotModified, w.Code)

	w, _ = app.get("/post/"+first.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	req = httptest.NewRequest(http.MethodGet, "/post/"+first.ID, nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	w, _ = app.do(req, "")
	require.Equal(t, http.StatusNotModified, w.Code)

	w, _ = app.get("/post/P404XX", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, body = app.get("/post/kategori/Teknologi", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list, 2)

	w, body = app.get("/post/jenjang/SD", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, string(body.Data))
}

func TestPostsByCreatorAccess(t *testing.T) {
	app := newTestApp(t)
	orgID, organizer := app.register("Budi", "budi@mail.com", models.RolePenyelenggara)
	_, other := app.register("Citra", "citra@mail.com", models.RolePenyelenggara)
	_, registrant := app.register("Ana", "ana@mail.com", models.RolePendaftar)

	open := app.createPost(organizer, "Masih Buka", app.clock.Add(72*time.Hour))
	done := app.createPost(organizer, "Sudah Selesai", app.clock.Add(-72*time.Hour))
	// two ticks: start, then conclude
	_, err := app.reconciler.UpdateStatuses(context.Background())
	require.NoError(t, err)
	_, err = app.reconciler.UpdateStatuses(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.StatusTelahDilaksanakan, app.post(done.ID).Status)

	count := func(token string) int {
		w, body := app.get("/post/user/"+orgID, token)
		require.Equal(t, http.StatusOK, w.Code)
		var list []models.PostView
		require.NoError(t, json.Unmarshal(body.Data, &list))
		return len(list)
	}
	require.Equal(t, 2, count(organizer))
	require.Equal(t, 2, count(other))
	require.Equal(t, 1, count(registrant))
	require.Equal(t, models.StatusBelumDilaksanakan, app.post(open.ID).Status)

	w, _ := app.get("/post/user/"+orgID, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAndDeletePost(t *testing.T) {
	app := newTestApp(t)
	_, organizer := app.register("Budi", "budi@mail.com", models.RolePenyelenggara)
	_, intruder := app.register("Citra", "citra@mail.com", models.RolePenyelenggara)
	post := app.createPost(organizer, "Lomba A", app.clock.Add(72*time.Hour))

	w, _ := app.form(http.MethodPut, "/post/"+post.ID, intruder, map[string]string{"title": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w, body := app.form(http.MethodPut, "/post/"+post.ID, organizer, map[string]string{
		"title":      "Lomba A+",
		"categories": `["Sains","Memasak","Sains"]`,
	}, upload{field: "image", name: "new.gif", content: []byte("gif")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.PostView
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	require.Equal(t, "Lomba A+", updated.Title)
	require.Equal(t, []string{"Sains"}, updated.Categories)
	require.Equal(t, []string{"SMA"}, updated.Jenjangs)
	require.NotEqual(t, post.Image, updated.Image)
	require.Len(t, app.files("posts"), 1)

	w, _ = app.form(http.MethodPut, "/post/"+post.ID, organizer, map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.get(updated.Image, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(httptest.NewRequest(http.MethodDelete, "/post/"+post.ID, nil), intruder)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(httptest.NewRequest(http.MethodDelete, "/post/"+post.ID, nil), organizer)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.get(updated.Image, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w, _ = app.get("/post/"+post.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(httptest.NewRequest(http.MethodDelete, "/post/"+post.ID, nil), organizer)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestETagChangesWhenCreatorProfileChanges(t *testing.T) {
	app := newTestApp(t)
	_, organizer := app.register("Budi", "budi@mail.com", models.RolePenyelenggara)
	post := app.createPost(organizer, "Lomba A", app.clock.Add(72*time.Hour))

	w, _ := app.get("/post/"+post.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	itemTag := w.Header().Get("ETag")
	w, _ = app.get("/post", "")
	require.Equal(t, http.StatusOK, w.Code)
	listTag := w.Header().Get("ETag")

	app.clock = app.clock.Add(time.Minute)
	w, _ = app.json(http.MethodPut, "/user/profile", organizer, map[string]string{"name": "Budi Santoso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for path, tag := range map[string]string{"/post/" + post.ID: itemTag, "/post": listTag} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("If-None-Match", tag)
		w, body := app.do(req, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		require.NotEqual(t, tag, w.Header().Get("ETag"), path)
		require.Contains(t, string(body.Data), "Budi Santoso", path)
	}
}
