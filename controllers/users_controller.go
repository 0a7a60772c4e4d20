package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/berprestasi/lomba-api/middleware"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/storage"
	"github.com/berprestasi/lomba-api/utils"
)

// id collisions are rare; a couple of retries is plenty
const idAttempts = 3

// ---------------- REGISTER ----------------
func Register(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name     string      `form:"name" json:"name" binding:"required"`
			Email    string      `form:"email" json:"email" binding:"required,email"`
			Password string      `form:"password" json:"password" binding:"required,min=6"`
			Nomor    string      `form:"nomor" json:"nomor" binding:"required"`
			Role     models.Role `form:"role" json:"role"`
		}
		if err := c.ShouldBind(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Data registrasi tidak valid", err)
			return
		}

		if input.Role == "" {
			input.Role = models.RolePendaftar
		}
		if !input.Role.Registrable() {
			utils.JSONError(c, http.StatusBadRequest, "Role tidak valid", errors.New("role must be pendaftar or penyelenggara"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		// --- Reject duplicates before touching storage ---
		if _, err := env.Users.FindByEmail(ctx, input.Email); err == nil {
			utils.JSONError(c, http.StatusBadRequest, "Email sudah terdaftar", repository.ErrDuplicateEmail)
			return
		} else if !errors.Is(err, repository.ErrNotFound) {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat registrasi", err)
			return
		}

		fh, err := optionalFile(c, "profilePicture")
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Foto profil tidak valid", err)
			return
		}
		picture := models.DefaultProfilePicture
		if fh != nil {
			location, status, err := env.saveImage(ctx, storage.FolderProfiles, fh)
			if err != nil {
				utils.JSONError(c, status, "Gagal mengunggah foto profil", err)
				return
			}
			picture = location
		}

		hash, err := utils.HashPassword(input.Password)
		if err != nil {
			env.discardImage(ctx, picture)
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat registrasi", err)
			return
		}

		now := env.now()
		user := &models.User{
			Name:           input.Name,
			Email:          input.Email,
			Password:       hash,
			Nomor:          input.Nomor,
			Role:           input.Role,
			ProfilePicture: picture,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		for attempt := 0; attempt < idAttempts; attempt++ {
			user.ID = models.NewID(models.UserIDPrefix, env.now())
			if err = env.Users.Create(ctx, user); !errors.Is(err, repository.ErrDuplicateID) {
				break
			}
		}
		if err != nil {
			env.discardImage(ctx, picture)
			if errors.Is(err, repository.ErrDuplicateEmail) {
				utils.JSONError(c, http.StatusBadRequest, "Email sudah terdaftar", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat registrasi", err)
			return
		}

		env.logger().Info("user registered", "user_id", user.ID, "role", user.Role)
		utils.JSONSuccess(c, http.StatusCreated, "Registrasi berhasil", user.Public())
	}
}

// ---------------- LOGIN ----------------
func Login(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `form:"email" json:"email" binding:"required"`
			Password string `form:"password" json:"password" binding:"required"`
		}
		if err := c.ShouldBind(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Email dan password wajib diisi", err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := env.Users.FindByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "Email belum terdaftar", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat login", err)
			return
		}

		if !utils.CheckPassword(user.Password, input.Password) {
			utils.JSONError(c, http.StatusUnauthorized, "Password salah", errors.New("password mismatch"))
			return
		}

		token, err := utils.GenerateToken(env.Cfg.JWTSecret, *user, env.Cfg.TokenTTL, env.now())
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Terjadi kesalahan saat login", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Login berhasil",
			"token":   token,
			"data":    user.Public(),
		})
	}
}

// ---------------- LOGOUT ----------------

// Logout is a no-op: tokens are stateless and the client discards its copy.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.JSONSuccess(c, http.StatusOK, "Logout berhasil", nil)
	}
}

// ---------------- VERIFY ----------------
func Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			utils.JSONError(c, http.StatusUnauthorized, "Token tidak valid", errors.New("no authenticated user"))
			return
		}
		utils.JSONSuccess(c, http.StatusOK, "Token valid", user.Public())
	}
}

// ---------------- PROFILE ----------------
func GetProfile(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := env.Users.FindByID(ctx, c.GetString(middleware.ContextUserID))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "User tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil profil", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "", user.Public())
	}
}

func UpdateProfile(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserID)

		var input struct {
			Name  string `form:"name" json:"name"`
			Email string `form:"email" json:"email" binding:"omitempty,email"`
			Nomor string `form:"nomor" json:"nomor"`
		}
		if err := c.ShouldBind(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Data profil tidak valid", err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		current, err := env.Users.FindByID(ctx, uid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "User tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal memperbarui profil", err)
			return
		}

		// --- Email must stay unique ---
		if input.Email != "" {
			other, err := env.Users.FindByEmail(ctx, input.Email)
			switch {
			case err == nil && other.ID != uid:
				utils.JSONError(c, http.StatusConflict, "Email sudah digunakan", repository.ErrDuplicateEmail)
				return
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				utils.JSONError(c, http.StatusInternalServerError, "Gagal memperbarui profil", err)
				return
			}
		}

		upd := models.ProfileUpdate{Name: input.Name, Email: input.Email, Nomor: input.Nomor}

		fh, err := optionalFile(c, "profilePicture")
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Foto profil tidak valid", err)
			return
		}
		if fh != nil {
			location, status, err := env.saveImage(ctx, storage.FolderProfiles, fh)
			if err != nil {
				utils.JSONError(c, status, "Gagal mengunggah foto profil", err)
				return
			}
			upd.ProfilePicture = location
		}

		if upd.Empty() {
			utils.JSONError(c, http.StatusBadRequest, "Tidak ada data yang diperbarui", errors.New("no fields to update"))
			return
		}

		updated, err := env.Users.UpdateProfile(ctx, uid, upd, env.now())
		if err != nil {
			env.discardImage(ctx, upd.ProfilePicture)
			if errors.Is(err, repository.ErrDuplicateEmail) {
				utils.JSONError(c, http.StatusConflict, "Email sudah digunakan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal memperbarui profil", err)
			return
		}

		if upd.ProfilePicture != "" && current.ProfilePicture != upd.ProfilePicture {
			env.discardImage(ctx, current.ProfilePicture)
		}

		utils.JSONSuccess(c, http.StatusOK, "Profil berhasil diperbarui", updated.Public())
	}
}

// ---------------- CHANGE PASSWORD ----------------
func ChangePassword(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			CurrentPassword string `json:"currentPassword" form:"currentPassword" binding:"required"`
			NewPassword     string `json:"newPassword" form:"newPassword" binding:"required,min=6"`
		}
		if err := c.ShouldBind(&input); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Data password tidak valid", err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		uid := c.GetString(middleware.ContextUserID)
		user, err := env.Users.FindByID(ctx, uid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.JSONError(c, http.StatusNotFound, "User tidak ditemukan", err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengubah password", err)
			return
		}

		if !utils.CheckPassword(user.Password, input.CurrentPassword) {
			utils.JSONError(c, http.StatusBadRequest, "Password saat ini salah", errors.New("password mismatch"))
			return
		}

		hash, err := utils.HashPassword(input.NewPassword)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengubah password", err)
			return
		}
		if err := env.Users.UpdatePassword(ctx, uid, hash, env.now()); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengubah password", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "Password berhasil diubah", nil)
	}
}

// ---------------- FOLLOWED POSTS ----------------
func FollowedPosts(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		posts, err := env.Posts.Find(ctx, repository.PostFilter{Follower: c.GetString(middleware.ContextUserID)})
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil lomba yang diikuti", err)
			return
		}

		views, _, err := env.withCreators(ctx, posts)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Gagal mengambil lomba yang diikuti", err)
			return
		}

		utils.JSONSuccess(c, http.StatusOK, "", views)
	}
}
