package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint replies with.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func JSONSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	c.JSON(statusCode, APIResponse{Success: true, Message: message, Data: data})
}

// JSONError replies with a failure envelope. err, when non-nil, is exposed
// verbatim in the error field.
func JSONError(c *gin.Context, statusCode int, message string, err error) {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	resp := APIResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(statusCode, resp)
}
