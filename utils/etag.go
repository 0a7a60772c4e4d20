package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GenerateETag derives a strong validator from a document id and its last
// modification time.
func GenerateETag(id string, updatedAt time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d", id, updatedAt.UnixNano())))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// CheckNotModified sets the ETag and Last-Modified headers and, when the
// client already holds the same ETag, replies 304 and returns true.
func CheckNotModified(c *gin.Context, etag string, lastModified time.Time) bool {
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	c.Header("ETag", etag)
	if !lastModified.IsZero() {
		c.Header("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}
	return false
}
