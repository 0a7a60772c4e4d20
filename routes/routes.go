package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	config "github.com/berprestasi/lomba-api/config"
	controllers "github.com/berprestasi/lomba-api/controllers"
	middleware "github.com/berprestasi/lomba-api/middleware"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/storage"
	"github.com/berprestasi/lomba-api/utils"
)

func SetupRoutes(r *gin.Engine, env *controllers.Env) {
	controllers.RegisterValidators()

	// public
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Berprestasi API is running")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if env.Cfg.StorageDriver == config.StorageLocal {
		r.Static(storage.PublicPrefix, env.Cfg.UploadDir)
	}

	auth := middleware.AuthMiddleware(env.Cfg.JWTSecret, env.Users)
	organizer := middleware.RequireRoles(models.RolePenyelenggara, models.RoleAdmin)

	// accounts
	user := r.Group("/user")
	{
		user.POST("/auth/register", controllers.Register(env))
		user.POST("/auth/login", controllers.Login(env))
		user.POST("/auth/logout", auth, controllers.Logout())
		user.GET("/auth/verify", auth, controllers.Verify())

		user.GET("/profile", auth, controllers.GetProfile(env))
		user.PUT("/profile", auth, controllers.UpdateProfile(env))
		user.PUT("/change-password", auth, controllers.ChangePassword(env))
		user.GET("/followed-posts", auth, controllers.FollowedPosts(env))
	}

	// notifications
	notifs := r.Group("/user/notifications")
	notifs.Use(auth)
	{
		registrant := controllers.RegistrantScope
		notifs.GET("", controllers.ListNotifications(env))
		notifs.PUT("/read-all", controllers.MarkAllNotificationsRead(env, registrant))
		notifs.PUT("/:id/read", controllers.MarkNotificationRead(env, registrant))
		notifs.DELETE("/:id", controllers.DeleteNotification(env, registrant))
		notifs.DELETE("", controllers.DeleteAllNotifications(env, registrant))

		org := notifs.Group("/penyelenggara")
		org.Use(organizer)
		scope := controllers.OrganizerScope
		org.GET("", controllers.ListOrganizerNotifications(env))
		org.PUT("/mark-all-read", controllers.MarkAllNotificationsRead(env, scope))
		org.PUT("/:id/read", controllers.MarkNotificationRead(env, scope))
		org.DELETE("/:id", controllers.DeleteNotification(env, scope))
		org.DELETE("", controllers.DeleteAllNotifications(env, scope))
	}

	// competitions
	posts := r.Group("/post")
	{
		posts.GET("", controllers.ListPosts(env))
		posts.GET("/check-status-manually", controllers.CheckStatusManually(env))
		posts.GET("/kategori/:category", controllers.PostsByCategory(env))
		posts.GET("/jenjang/:jenjang", controllers.PostsByJenjang(env))
		posts.GET("/user/:userId", auth, controllers.PostsByCreator(env))
		posts.GET("/:id", controllers.GetPost(env))

		posts.POST("", auth, organizer, controllers.CreatePost(env))
		posts.PUT("/:id", auth, controllers.UpdatePost(env))
		posts.DELETE("/:id", auth, controllers.DeletePost(env))

		posts.POST("/:id/follow", auth, controllers.FollowPost(env))
		posts.POST("/:id/unfollow", auth, controllers.UnfollowPost(env))
		posts.GET("/:id/followers", auth, controllers.ListFollowers(env))
	}

	r.NoRoute(func(c *gin.Context) {
		utils.JSONError(c, http.StatusNotFound, "Endpoint tidak ditemukan", nil)
	})
}
