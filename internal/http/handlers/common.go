package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends the standard failure envelope. The raw error
// string is attached only when the caller has one worth surfacing.
func respondError(c *gin.Context, status int, message, errMsg string) {
	payload := gin.H{
		"success": false,
		"message": message,
	}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	c.JSON(status, payload)
}

// respondNotFound sends the not-found envelope. The null data field is
// explicit: absence is a legitimate outcome, not a failure.
func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// bindJSONOrError ensures the body is present and parsable.
func bindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		respondError(c, http.StatusBadRequest, "Request body is required", "")
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}
