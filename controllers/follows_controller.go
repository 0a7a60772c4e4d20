package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/berprestasi/lomba-api/middleware"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/utils"
)

// ---------------- FOLLOW ----------------

// FollowPost adds the caller to the follower set and tells the creator.
func FollowPost(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil || user.Role != models.RolePendaftar {
			utils.JSONError(c, http.StatusForbidden, "Hanya pendaftar yang dapat mengikuti lomba", errors.New("role is not pendaftar"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		post, err := env.Posts.FindByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengikuti lomba", err)
			return
		}

		now := env.now()
		updated, err := env.Posts.AddFollower(ctx, post.ID, user.ID, now)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrAlreadyFollowing):
				utils.JSONError(c, http.StatusConflict, "Anda sudah mengikuti lomba ini", err)
			case errors.Is(err, repository.ErrNotFound):
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
			default:
				utils.JSONError(c, http.StatusInternalServerError, "Gagal mengikuti lomba", err)
			}
			return
		}

		// --- Notify the creator; the follow itself already succeeded ---
		notification := &models.Notification{
			UserID:     post.Creator,
			PostID:     post.ID,
			FollowerID: user.ID,
			Message:    models.FollowMessage(user.Name, post.Title),
			Type:       models.NotificationFollow,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := env.Notifications.Create(ctx, notification); err != nil {
			env.logger().Error("create follow notification", "post_id", post.ID, "follower", user.ID, "error", err)
		} else if env.Publisher != nil {
			if err := env.Publisher.PublishNotification(notification); err != nil {
				env.logger().Warn("publish follow notification", "post_id", post.ID, "error", err)
			}
		}

		utils.JSONSuccess(c, http.StatusOK, "Berhasil mengikuti lomba", gin.H{
			"postId":         post.ID,
			"followersCount": len(updated.Followers),
		})
	}
}

// ---------------- UNFOLLOW ----------------
func UnfollowPost(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserID)
		if models.Role(c.GetString(middleware.ContextRole)) != models.RolePendaftar {
			utils.JSONError(c, http.StatusForbidden, "Hanya pendaftar yang dapat berhenti mengikuti lomba", errors.New("role is not pendaftar"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := env.Posts.RemoveFollower(ctx, c.Param("id"), uid, env.now()); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFollowing):
				utils.JSONError(c, http.StatusBadRequest, "Anda belum mengikuti lomba ini", err)
			case errors.Is(err, repository.ErrNotFound):
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
			default:
				utils.JSONError(c, http.StatusInternalServerError, "Gagal berhenti mengikuti lomba", err)
			}
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Berhasil berhenti mengikuti lomba", nil)
	}
}

// ---------------- FOLLOWERS ----------------
func ListFollowers(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		post, err := env.Posts.FindByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Lomba tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil pengikut", err)
			return
		}
		if !canManage(c, post) {
			utils.JSONError(c, http.StatusForbidden, "Hanya pembuat lomba yang dapat melihat pengikut", errNotOwner)
			return
		}

		users, err := env.Users.FindByIDs(ctx, post.Followers)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil pengikut", err)
			return
		}
		byID := make(map[string]models.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		// keep follow order
		followers := make([]models.PublicUser, 0, len(post.Followers))
		for _, id := range post.Followers {
			if u, ok := byID[id]; ok {
				followers = append(followers, u.Public())
			}
		}

		utils.JSONSuccess(c, http.StatusOK, "", followers)
	}
}
