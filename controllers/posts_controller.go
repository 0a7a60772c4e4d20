package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/berprestasi/lomba-api/middleware"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/storage"
	"github.com/berprestasi/lomba-api/utils"
)

var errNotOwner = errors.New("only the creator can modify this post")

// withCreators attaches creator summaries with a single batch lookup. It
// also returns the latest creator update, which feeds the ETag.
func (e *Env) withCreators(ctx context.Context, posts []models.Post) ([]models.PostView, time.Time, error) {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.Creator)
	}
	users, err := e.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, time.Time{}, err
	}
	var creatorsAt time.Time
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
		if u.UpdatedAt.After(creatorsAt) {
			creatorsAt = u.UpdatedAt
		}
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		view := models.PostView{Post: p}
		if u, ok := byID[p.Creator]; ok {
			view.Creator = u.Summary()
		}
		views = append(views, view)
	}
	return views, creatorsAt, nil
}

// viewsETag covers the newest post change, the list size and the newest
// creator change, so deletions and profile edits invalidate cached copies.
func viewsETag(posts []models.Post, creatorsAt time.Time) (string, time.Time) {
	latest := posts[0]
	for _, p := range posts {
		if p.UpdatedAt.After(latest.UpdatedAt) {
			latest = p
		}
	}
	modified := latest.UpdatedAt
	if creatorsAt.After(modified) {
		modified = creatorsAt
	}
	key := fmt.Sprintf("%s:%d:%d", latest.ID, len(posts), creatorsAt.UnixNano())
	return utils.GenerateETag(key, latest.UpdatedAt), modified
}

func canManage(c *gin.Context, post *models.Post) bool {
	return c.GetString(middleware.ContextRole) == string(models.RoleAdmin) ||
		post.Creator == c.GetString(middleware.ContextUserID)
}

// parseLists reads categories and jenjangs from the form. present reports
// whether each field was sent at all.
func parseLists(c *gin.Context) (categories, jenjangs []string, present [2]bool, err error) {
	if raw, ok := c.GetPostFormArray("categories"); ok {
		present[0] = true
		if categories, err = models.ParseList(raw); err != nil {
			return nil, nil, present, fmt.Errorf("categories: %w", err)
		}
	}
	if raw, ok := c.GetPostFormArray("jenjangs"); ok {
		present[1] = true
		if jenjangs, err = models.ParseList(raw); err != nil {
			return nil, nil, present, fmt.Errorf("jenjangs: %w", err)
		}
	}
	return categories, jenjangs, present, nil
}

// ---------------- CREATE ----------------
func CreatePost(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserID)

		// --- Bind form fields ---
		var input struct {
			Title       string `form:"title" binding:"required"`
			Description string `form:"description" binding:"required"`
			Pelaksanaan string `form:"pelaksanaan" binding:"required"`
			Link        string `form:"link" binding:"omitempty,weblink"`
		}
		if err := c.ShouldBind(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Data lomba tidak valid", err)
			return
		}

		categories, jenjangs, _, err := parseLists(c)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Format kategori atau jenjang tidak valid", err)
			return
		}
		if len(categories) == 0 {
			utils.JSONError(c, http.StatusBadRequest, "Kategori wajib diisi", errors.New("categories is required"))
			return
		}
		if bad := models.Invalid(categories, models.Categories); len(bad) > 0 {
			utils.JSONError(c, http.StatusBadRequest, "Kategori tidak valid", fmt.Errorf("unknown categories: %s", strings.Join(bad, ", ")))
			return
		}
		if bad := models.Invalid(jenjangs, models.Jenjangs); len(bad) > 0 {
			utils.JSONError(c, http.StatusBadRequest, "Jenjang tidak valid", fmt.Errorf("unknown jenjangs: %s", strings.Join(bad, ", ")))
			return
		}

		pelaksanaan, err := models.ParseSchedule(input.Pelaksanaan, env.location())
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Tanggal pelaksanaan tidak valid", err)
			return
		}

		// --- Image is mandatory ---
		fh, err := optionalFile(c, "image")
		if err != nil || fh == nil {
			if err == nil {
				err = errors.New("image is required")
			}
			utils.JSONError(c, http.StatusBadRequest, "Gambar lomba wajib diunggah", err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		image, status, err := env.saveImage(ctx, storage.FolderPosts, fh)
		if err != nil {
			utils.JSONError(c, status, "Gagal mengunggah gambar", err)
			return
		}

		// --- Save post ---
		now := env.now()
		post := &models.Post{
			Title:       input.Title,
			Description: input.Description,
			Image:       image,
			Categories:  models.FilterAllowed(categories, models.Categories),
			Jenjangs:    models.FilterAllowed(jenjangs, models.Jenjangs),
			Creator:     uid,
			Followers:   []string{},
			Pelaksanaan: pelaksanaan,
			Link:        input.Link,
			Status:      models.StatusBelumDilaksanakan,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for attempt := 0; attempt < idAttempts; attempt++ {
			post.ID = models.NewID(models.PostIDPrefix, env.now())
			if err = env.Posts.Create(ctx, post); !errors.Is(err, repository.ErrDuplicateID) {
				break
			}
		}
		if err != nil {
			env.discardImage(ctx, image)
			utils.JSONError(c, http.StatusInternalServerError, "Gagal membuat lomba", err)
			return
		}

		view := models.PostView{Post: *post}
		if u := middleware.CurrentUser(c); u != nil {
			view.Creator = u.Summary()
		}

		env.logger().Info("post created", "post_id", post.ID, "creator", uid)
		utils.JSONSuccess(c, http.StatusCreated, "Lomba berhasil dibuat", view)
	}
}

// ---------------- LIST ----------------
func ListPosts(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		posts, err := env.Posts.Find(ctx, repository.PostFilter{})
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil data lomba", err)
			return
		}

		views, creatorsAt, err := env.withCreators(ctx, posts)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil data lomba", err)
			return
		}

		if len(posts) > 0 {
			etag, modified := viewsETag(posts, creatorsAt)
			if utils.CheckNotModified(c, etag, modified) {
				return
			}
		}

		utils.JSONSuccess(c, http.StatusOK, "", views)
	}
}

// ---------------- GET ----------------
func GetPost(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		post, err := env.Posts.FindByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil detail lomba", err)
			return
		}

		views, creatorsAt, err := env.withCreators(ctx, []models.Post{*post})
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil detail lomba", err)
			return
		}

		etag, modified := viewsETag([]models.Post{*post}, creatorsAt)
		if utils.CheckNotModified(c, etag, modified) {
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "", views[0])
	}
}

// ---------------- LIST BY CREATOR ----------------

// PostsByCreator shows everything to the creator, admins and organizers; a
// registrant browsing someone else only sees posts that have not concluded.
func PostsByCreator(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		creator := c.Param("userId")
		uid := c.GetString(middleware.ContextUserID)
		role := models.Role(c.GetString(middleware.ContextRole))

		filter := repository.PostFilter{Creator: creator}
		if uid != creator {
			switch role {
			case models.RoleAdmin, models.RolePenyelenggara:
			case models.RolePendaftar:
				filter.Statuses = models.PublicStatuses
			default:
				utils.JSONError(c, http.StatusForbidden, "Anda tidak memiliki izin untuk mengakses lomba ini", fmt.Errorf("role %q", role))
				return
			}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		posts, err := env.Posts.Find(ctx, filter)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil lomba", err)
			return
		}
		views, _, err := env.withCreators(ctx, posts)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil lomba", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "", views)
	}
}

// ---------------- FILTERED LISTS ----------------
func PostsByCategory(env *Env) gin.HandlerFunc {
	return listFiltered(env, func(c *gin.Context) repository.PostFilter {
		return repository.PostFilter{Category: c.Param("category")}
	})
}

func PostsByJenjang(env *Env) gin.HandlerFunc {
	return listFiltered(env, func(c *gin.Context) repository.PostFilter {
		return repository.PostFilter{Jenjang: c.Param("jenjang")}
	})
}

func listFiltered(env *Env, filter func(*gin.Context) repository.PostFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		posts, err := env.Posts.Find(ctx, filter(c))
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil data lomba", err)
			return
		}
		views, _, err := env.withCreators(ctx, posts)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat mengambil data lomba", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "", views)
	}
}

// ---------------- UPDATE ----------------
func UpdatePost(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		existing, err := env.Posts.FindByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat memperbarui lomba", err)
			return
		}
		if !canManage(c, existing) {
			utils.JSONError(c, http.StatusForbidden, "Anda tidak memiliki izin untuk mengubah lomba ini", errNotOwner)
			return
		}

		// --- Collect changed fields ---
		var upd models.PostUpdate
		if v, ok := c.GetPostForm("title"); ok && strings.TrimSpace(v) != "" {
			upd.Title = &v
		}
		if v, ok := c.GetPostForm("description"); ok && strings.TrimSpace(v) != "" {
			upd.Description = &v
		}
		if v, ok := c.GetPostForm("pelaksanaan"); ok && strings.TrimSpace(v) != "" {
			at, err := models.ParseSchedule(v, env.location())
			if err != nil {
				utils.JSONError(c, http.StatusBadRequest, "Tanggal pelaksanaan tidak valid", err)
				return
			}
			upd.Pelaksanaan = &at
		}
		if v, ok := c.GetPostForm("link"); ok {
			if !models.IsValidLink(v) {
				utils.JSONError(c, http.StatusBadRequest, "Link tidak valid", fmt.Errorf("invalid link %q", v))
				return
			}
			upd.Link = &v
		}

		categories, jenjangs, present, err := parseLists(c)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Format kategori atau jenjang tidak valid", err)
			return
		}
		// unknown entries are dropped on update
		if present[0] {
			upd.Categories = models.FilterAllowed(categories, models.Categories)
		}
		if present[1] {
			upd.Jenjangs = models.FilterAllowed(jenjangs, models.Jenjangs)
		}

		// --- Optional replacement image ---
		fh, err := optionalFile(c, "image")
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Gambar tidak valid", err)
			return
		}
		if fh != nil {
			image, status, err := env.saveImage(ctx, storage.FolderPosts, fh)
			if err != nil {
				utils.JSONError(c, status, "Gagal mengunggah gambar", err)
				return
			}
			upd.Image = &image
		}

		if upd.Empty() {
			utils.JSONError(c, http.StatusBadRequest, "Tidak ada data yang diperbarui", errors.New("no fields to update"))
			return
		}

		updated, err := env.Posts.Update(ctx, existing.ID, upd, env.now())
		if err != nil {
			if upd.Image != nil {
				env.discardImage(ctx, *upd.Image)
			}
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat memperbarui lomba", err)
			return
		}
		if upd.Image != nil && existing.Image != *upd.Image {
			env.discardImage(ctx, existing.Image)
		}

		views, _, err := env.withCreators(ctx, []models.Post{*updated})
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat memperbarui lomba", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Lomba berhasil diperbarui", views[0])
	}
}

// ---------------- DELETE ----------------
func DeletePost(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		existing, err := env.Posts.FindByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat menghapus lomba", err)
			return
		}
		if !canManage(c, existing) {
			utils.JSONError(c, http.StatusForbidden, "Anda tidak memiliki izin untuk menghapus lomba ini", errNotOwner)
			return
		}

		if err := env.Posts.Delete(ctx, existing.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat menghapus lomba", err)
			return
		}
		env.discardImage(ctx, existing.Image)

		env.logger().Info("post deleted", "post_id", existing.ID)
		utils.JSONSuccess(c, http.StatusOK, "Lomba berhasil dihapus", nil)
	}
}
