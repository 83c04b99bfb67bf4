package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/dispatch"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondDispatchError renders a booking engine failure. Domain errors keep
// their code and message; anything else is a storage failure whose detail
// stays in the log.
func respondDispatchError(c *gin.Context, err error, action string) {
	if de, ok := dispatch.AsError(err); ok {
		respondError(c, statusFor(de.Kind), de.Code, de.Message)
		return
	}
	log.Printf("Failed to %s: %v", action, err)
	respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action)
}

func statusFor(kind dispatch.ErrorKind) int {
	switch kind {
	case dispatch.KindNotFound:
		return http.StatusNotFound
	case dispatch.KindForbidden:
		return http.StatusForbidden
	case dispatch.KindInvalidTransition, dispatch.KindConflict:
		return http.StatusConflict
	case dispatch.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// parseID reads a positive numeric path parameter, writing a 400 when it is
// malformed
func parseID(c *gin.Context, name, code, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, code, message)
		return 0, false
	}
	return uint(id), true
}

// isUniqueViolation checks for duplicate key errors (works with both PostgreSQL and SQLite)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}
