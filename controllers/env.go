package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	config "github.com/berprestasi/lomba-api/config"
	"github.com/berprestasi/lomba-api/events"
	models "github.com/berprestasi/lomba-api/models"
	"github.com/berprestasi/lomba-api/repository"
	"github.com/berprestasi/lomba-api/scheduler"
	"github.com/berprestasi/lomba-api/storage"
)

const requestTimeout = 5 * time.Second

// Env carries the dependencies shared by every handler.
type Env struct {
	Cfg           *config.Config
	Users         repository.UserStore
	Posts         repository.PostStore
	Notifications repository.NotificationStore
	Images        storage.ImageStore
	Publisher     events.Publisher
	Reconciler    *scheduler.Reconciler
	Log           *slog.Logger
	// Now is overridden in tests.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Env) location() *time.Location {
	if e.Cfg != nil && e.Cfg.Location != nil {
		return e.Cfg.Location
	}
	return time.UTC
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// optionalFile returns the uploaded file under field, or nil when none was
// sent.
func optionalFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return fh, nil
}

// saveImage validates and stores fh. Validation failures map to 400.
func (e *Env) saveImage(ctx context.Context, folder string, fh *multipart.FileHeader) (string, int, error) {
	if err := storage.ValidateImage(folder, fh); err != nil {
		return "", http.StatusBadRequest, err
	}
	location, err := e.Images.Save(ctx, folder, fh)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	return location, 0, nil
}

// discardImage removes an image that will not be referenced. Failures are
// only logged.
func (e *Env) discardImage(ctx context.Context, location string) {
	if location == "" || location == models.DefaultProfilePicture {
		return
	}
	if err := e.Images.Delete(ctx, location); err != nil {
		e.logger().Warn("delete image", "location", location, "error", err)
	}
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags used by the handlers.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected validator engine %T", binding.Validator.Engine()))
		}
		err := v.RegisterValidation("weblink", func(fl validator.FieldLevel) bool {
			return models.IsValidLink(fl.Field().String())
		})
		if err != nil {
			panic(fmt.Sprintf("register weblink validator: %v", err))
		}
	})
}
