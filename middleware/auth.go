package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/utils"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
	ContextUser   = "user"
)

// AuthMiddleware resolves the bearer token to a live user. A token whose
// account no longer exists is rejected.
func AuthMiddleware(secret []byte, users repository.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			utils.JSONError(c, http.StatusUnauthorized, "Akses ditolak. Token tidak ditemukan", errors.New("missing Authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.JSONError(c, http.StatusUnauthorized, "Akses ditolak. Token tidak ditemukan", errors.New("invalid Authorization header format"))
			return
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "Token tidak valid", err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := users.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusUnauthorized, "Token tidak valid", errors.New("user no longer exists"))
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal memverifikasi token", err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextRole, string(user.Role))
		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString(ContextRole))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		utils.JSONError(c, http.StatusForbidden, "Akses ditolak. Role tidak diizinkan", errors.New("role "+string(role)+" is not allowed"))
	}
}

// CurrentUser returns the user resolved by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
