package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	config "github.com/berprestasi/lomba-api/config"
	controllers "github.com/berprestasi/lomba-api/controllers"
	"github.com/berprestasi/lomba-api/events"
	middleware "github.com/berprestasi/lomba-api/middleware"
	"github.com/berprestasi/lomba-api/repository"
	routes "github.com/berprestasi/lomba-api/routes"
	"github.com/berprestasi/lomba-api/scheduler"
	"github.com/berprestasi/lomba-api/storage"
	"github.com/berprestasi/lomba-api/utils"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "lomba-api")
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	var (
		users         repository.UserStore
		posts         repository.PostStore
		notifications repository.NotificationStore
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := repository.NewMemoryStore()
		users, posts, notifications = mem.Users(), mem.Posts(), mem.Notifications()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		if err := cfg.ConnectMongo(ctx); err != nil {
			return err
		}
		defer func() {
			if err := cfg.MongoClient.Disconnect(context.Background()); err != nil {
				log.Warn("disconnect mongo", "error", err)
			}
		}()

		db := cfg.Database()
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		users = repository.NewMongoUserStore(db)
		posts = repository.NewMongoPostStore(db)
		notifications = repository.NewMongoNotificationStore(db)
		log.Info("connected to mongo", "db", cfg.DBName)
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	// --- Notification delivery ---
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NatsURL != "" {
		nats, err := events.NewNatsPublisher(cfg.NatsURL, log)
		if err != nil {
			return err
		}
		publisher = nats
		log.Info("connected to nats", "url", cfg.NatsURL)
	}
	defer publisher.Close()

	reconciler := &scheduler.Reconciler{
		Posts:         posts,
		Notifications: notifications,
		Users:         users,
		Publisher:     publisher,
		Location:      cfg.Location,
		Log:           log.With("component", "scheduler"),
	}
	if cfg.Mail.Enabled() {
		reconciler.Mailer = utils.NewZeptoMailer(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.From)
	}

	var jobs *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		jobs, err = scheduler.New(cfg.SchedulerCron, cfg.Location, reconciler, log.With("component", "cron"))
		if err != nil {
			return err
		}
		jobs.Start()
	}

	// --- HTTP ---
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Metrics(), middleware.RequestLogger(log), middleware.Recovery(log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	routes.SetupRoutes(r, &controllers.Env{
		Cfg:           cfg,
		Users:         users,
		Posts:         posts,
		Notifications: notifications,
		Images:        images,
		Publisher:     publisher,
		Reconciler:    reconciler,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if jobs != nil {
		jobs.Stop(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.StorageDriver {
	case config.StorageCloudinary:
		return storage.NewCloudinaryStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	case config.StorageS3:
		return storage.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Endpoint, cfg.S3.PublicURL, cfg.S3.ObjectACL)
	default:
		return storage.NewLocalStore(cfg.UploadDir)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "If-None-Match")
	c.ExposeHeaders = []string{"ETag", "Last-Modified"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
