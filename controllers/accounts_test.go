package controllers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	models "github.com/berprestasi/lomba-api/models"
)

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	w, body := app.form(http.MethodPost, "/user/auth/register", "", map[string]string{
		"name":     "Ana",
		"email":    "ana@mail.com",
		"password": "rahasia123",
		"nomor":    "0811",
	}, upload{field: "profilePicture", name: "me.jpg", content: []byte("jpg")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotContains(t, w.Body.String(), "password")

	var user models.PublicUser
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.Equal(t, models.RolePendaftar, user.Role)
	require.Regexp(t, `^U\d{4}[0-9A-Z]{2}$`, user.ID)
	require.Contains(t, user.ProfilePicture, "/uploads/profiles/")
	require.Len(t, app.files("profiles"), 1)

	t.Run("duplicate email keeps no upload", func(t *testing.T) {
		w, body := app.form(http.MethodPost, "/user/auth/register", "", map[string]string{
			"name":     "Ana Lagi",
			"email":    "ana@mail.com",
			"password": "rahasia123",
			"nomor":    "0812",
		}, upload{field: "profilePicture", name: "again.jpg", content: []byte("jpg")})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.False(t, body.Success)
		require.Equal(t, "Email sudah terdaftar", body.Message)
		require.Len(t, app.files("profiles"), 1)
	})

	t.Run("admin cannot be self-registered", func(t *testing.T) {
		w, _ := app.json(http.MethodPost, "/user/auth/register", "", map[string]string{
			"name": "Root", "email": "root@mail.com", "password": "rahasia123", "nomor": "1", "role": "admin",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("default avatar", func(t *testing.T) {
		w, body := app.json(http.MethodPost, "/user/auth/register", "", map[string]string{
			"name": "Budi", "email": "budi@mail.com", "password": "rahasia123", "nomor": "2", "role": "penyelenggara",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var u models.PublicUser
		require.NoError(t, json.Unmarshal(body.Data, &u))
		require.Equal(t, models.DefaultProfilePicture, u.ProfilePicture)
		require.Equal(t, models.RolePenyelenggara, u.Role)
	})

	t.Run("login", func(t *testing.T) {
		w, body := app.json(http.MethodPost, "/user/auth/login", "", map[string]string{"email": "ana@mail.com", "password": "salah"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Empty(t, body.Token)

		w, _ = app.json(http.MethodPost, "/user/auth/login", "", map[string]string{"email": "nobody@mail.com", "password": "x"})
		require.Equal(t, http.StatusNotFound, w.Code)

		w, body = app.json(http.MethodPost, "/user/auth/login", "", map[string]string{"email": "ana@mail.com", "password": "rahasia123"})
		require.Equal(t, http.StatusOK, w.Code)
		require.NotEmpty(t, body.Token)

		w, body = app.get("/user/auth/verify", body.Token)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "Token valid", body.Message)

		w, _ = app.get("/user/auth/verify", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestProfileAndPassword(t *testing.T) {
	app := newTestApp(t)
	_, token := app.register("Ana", "ana@mail.com", models.RolePendaftar)
	app.register("Budi", "budi@mail.com", models.RolePendaftar)

	w, body := app.form(http.MethodPut, "/user/profile", token, map[string]string{"name": "Ana Putri"},
		upload{field: "profilePicture", name: "first.png", content: []byte("1")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first models.PublicUser
	require.NoError(t, json.Unmarshal(body.Data, &first))
	require.Equal(t, "Ana Putri", first.Name)
	require.Len(t, app.files("profiles"), 1)

	// replacing the picture removes the previous one
	w, body = app.form(http.MethodPut, "/user/profile", token, nil,
		upload{field: "profilePicture", name: "second.png", content: []byte("2")})
	require.Equal(t, http.StatusOK, w.Code)
	var second models.PublicUser
	require.NoError(t, json.Unmarshal(body.Data, &second))
	require.NotEqual(t, first.ProfilePicture, second.ProfilePicture)
	require.Len(t, app.files("profiles"), 1)

	w, _ = app.json(http.MethodPut, "/user/profile", token, map[string]string{"email": "budi@mail.com"})
	require.Equal(t, http.StatusConflict, w.Code)

	w, _ = app.form(http.MethodPut, "/user/profile", token, nil,
		upload{field: "profilePicture", name: "doc.pdf", content: []byte("%PDF")})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, body = app.get("/user/profile", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(body.Data), "Ana Putri")

	w, _ = app.json(http.MethodPut, "/user/change-password", token, map[string]string{
		"currentPassword": "keliru", "newPassword": "baru12345",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.json(http.MethodPut, "/user/change-password", token, map[string]string{
		"currentPassword": "rahasia123", "newPassword": "baru12345",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.json(http.MethodPost, "/user/auth/login", "", map[string]string{"email": "ana@mail.com", "password": "baru12345"})
	require.Equal(t, http.StatusOK, w.Code)

	w, body = app.json(http.MethodPost, "/user/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, body.Success)
}
