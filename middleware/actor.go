package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/models"
	"gorm.io/gorm"
)

const (
	actorKey       = "actor"
	currentUserKey = "current_user"
)

// LoadActor resolves the token subject to a registered user and stores the
// resulting actor in the context. It must run after EnsureValidToken.
func LoadActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not extract user information",
				},
			})
			return
		}

		var user models.User
		if err := config.GetDB().WithContext(c.Request.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "USER_NOT_FOUND",
						"message": "User profile not found. Please create a profile first.",
					},
				})
				return
			}
			log.Printf("Failed to load user %s: %v", auth0ID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to load user profile",
				},
			})
			return
		}

		c.Set(currentUserKey, &user)
		c.Set(actorKey, dispatch.Actor{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// GetActor returns the actor stored by LoadActor
func GetActor(c *gin.Context) (dispatch.Actor, error) {
	value, exists := c.Get(actorKey)
	if !exists {
		return dispatch.Actor{}, &AuthError{Code: "MISSING_ACTOR", Message: "Actor not found in context"}
	}
	actor, ok := value.(dispatch.Actor)
	if !ok {
		return dispatch.Actor{}, &AuthError{Code: "INVALID_ACTOR", Message: "Actor is not in the expected format"}
	}
	return actor, nil
}

// CurrentUser returns the user row loaded by LoadActor
func CurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User is not in the expected format"}
	}
	return user, nil
}

// RequireRole is a middleware that only lets the listed roles through
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Could not determine the current user",
				},
			})
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Insufficient permissions to access this resource",
			},
		})
	}
}
