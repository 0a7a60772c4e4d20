package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/berprestasi/lomba-api/middleware"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/utils"
)

// RegistrantScope and OrganizerScope limit notification access to the
// caller and the kinds shown on their page.
func RegistrantScope(c *gin.Context) repository.NotificationFilter {
	return repository.NotificationFilter{
		UserID: c.GetString(middleware.ContextUserID),
		Types:  models.RegistrantTypes,
	}
}

func OrganizerScope(c *gin.Context) repository.NotificationFilter {
	return repository.NotificationFilter{
		UserID: c.GetString(middleware.ContextUserID),
		Types:  models.FollowTypes,
	}
}

// postsByID resolves the posts referenced by notifications. Dangling ids are
// simply absent from the map.
func (e *Env) postsByID(ctx context.Context, list []models.Notification) (map[string]models.Post, error) {
	ids := make([]string, 0, len(list))
	for _, n := range list {
		if n.PostID != "" {
			ids = append(ids, n.PostID)
		}
	}
	out := make(map[string]models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	posts, err := e.Posts.Find(ctx, repository.PostFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		out[p.ID] = p
	}
	return out, nil
}

// ---------------- REGISTRANT ----------------
func ListNotifications(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := env.Notifications.Find(ctx, RegistrantScope(c))
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil notifikasi", err)
			return
		}
		posts, err := env.postsByID(ctx, list)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil notifikasi", err)
			return
		}

		unread := 0
		views := make([]models.ReminderView, 0, len(list))
		for _, n := range list {
			view := models.ReminderView{
				ID:        n.ID,
				UserID:    n.UserID,
				Message:   n.Message,
				Type:      n.Type,
				IsRead:    n.IsRead,
				CreatedAt: n.CreatedAt,
			}
			if p, ok := posts[n.PostID]; ok {
				view.PostID = p.Summary()
			}
			if !n.IsRead {
				unread++
			}
			views = append(views, view)
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"data":        views,
			"unreadCount": unread,
		})
	}
}

// ---------------- ORGANIZER ----------------
func ListOrganizerNotifications(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := env.Notifications.Find(ctx, OrganizerScope(c))
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil notifikasi", err)
			return
		}
		posts, err := env.postsByID(ctx, list)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil notifikasi", err)
			return
		}

		followerIDs := make([]string, 0, len(list))
		for _, n := range list {
			followerIDs = append(followerIDs, n.FollowerID)
		}
		followers, err := env.Users.FindByIDs(ctx, followerIDs)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil notifikasi", err)
			return
		}
		byID := make(map[string]models.User, len(followers))
		for _, u := range followers {
			byID[u.ID] = u
		}

		unread := 0
		views := make([]models.FollowView, 0, len(list))
		for _, n := range list {
			view := models.FollowView{
				ID:        n.ID,
				UserID:    n.UserID,
				Message:   n.Message,
				Type:      n.Type,
				IsRead:    n.IsRead,
				CreatedAt: n.CreatedAt,
			}
			if p, ok := posts[n.PostID]; ok {
				view.Post = p.Summary()
			}
			if u, ok := byID[n.FollowerID]; ok {
				public := u.Public()
				view.Follower = &public
			}
			if !n.IsRead {
				unread++
			}
			views = append(views, view)
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"data":        views,
			"unreadCount": unread,
		})
	}
}

// ---------------- SHARED WRITES ----------------

// MarkNotificationRead, MarkAllNotificationsRead, DeleteNotification and
// DeleteAllNotifications take a scope so the registrant and organizer pages
// can only touch their own kinds.
func MarkNotificationRead(env *Env, scope func(*gin.Context) repository.NotificationFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "ID notifikasi tidak valid", err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := env.Notifications.MarkRead(ctx, scope(c), id, env.now()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Notifikasi tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal menandai notifikasi", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Notifikasi ditandai sebagai dibaca", nil)
	}
}

func MarkAllNotificationsRead(env *Env, scope func(*gin.Context) repository.NotificationFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		n, err := env.Notifications.MarkAllRead(ctx, scope(c), env.now())
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal menandai semua notifikasi", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Semua notifikasi ditandai sebagai dibaca", gin.H{"modifiedCount": n})
	}
}

func DeleteNotification(env *Env, scope func(*gin.Context) repository.NotificationFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "ID notifikasi tidak valid", err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := env.Notifications.Delete(ctx, scope(c), id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Notifikasi tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal menghapus notifikasi", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Notifikasi berhasil dihapus", nil)
	}
}

func DeleteAllNotifications(env *Env, scope func(*gin.Context) repository.NotificationFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		n, err := env.Notifications.DeleteAll(ctx, scope(c))
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal menghapus notifikasi", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Semua notifikasi berhasil dihapus",
			"deletedCount": n,
		})
	}
}

// ---------------- RECONCILIATION ----------------

// CheckStatusManually runs the status transitions synchronously, for
// troubleshooting the background job.
func CheckStatusManually(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 6*requestTimeout)
		defer cancel()

		result, err := env.Reconciler.UpdateStatuses(ctx)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal memperbarui status lomba", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Status lomba diperbarui", result)
	}
}
