package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/middleware"
	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/kendall-kelly/quickfix-api/services"
	"gorm.io/gorm"
)

// RegisterUserRequest is the optional body of POST /api/v1/users. With Auth0
// the name and email come from the userinfo endpoint instead.
type RegisterUserRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
}

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string  `json:"name" binding:"omitempty"`
	Email string  `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
}

// UserController handles registration and the caller's own profile
type UserController struct {
	userInfo services.UserInfoProvider
}

// NewUserController creates a user controller. userInfo is nil when tokens
// are not issued by Auth0.
func NewUserController(userInfo services.UserInfoProvider) *UserController {
	return &UserController{userInfo: userInfo}
}

// CreateUser handles POST /api/v1/users - registers the token subject.
// Technicians get a profile with a default specialization in the same
// transaction.
func (uc *UserController) CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondValidation(c, err)
		return
	}

	name, email, phone := strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Phone
	if uc.userInfo != nil {
		accessToken, err := middleware.GetAccessToken(c)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
			return
		}
		userInfo, err := uc.userInfo.GetUserInfo(c.Request.Context(), accessToken)
		if err != nil {
			if services.IsTokenRejected(err) {
				respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Access token was rejected by Auth0")
				return
			}
			log.Printf("Failed to fetch userinfo for %s: %v", auth0ID, err)
			respondError(c, http.StatusBadGateway, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
			return
		}
		if userInfo.Name != "" {
			name = userInfo.Name
		}
		if userInfo.Email != "" {
			email = userInfo.Email
		}
		if phone == nil && userInfo.PhoneNumber != "" {
			phone = &userInfo.PhoneNumber
		}
	}

	if email == "" {
		respondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided")
		return
	}
	if name == "" {
		respondError(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided")
		return
	}

	role := middleware.ClaimedRole(c)
	if role == "" {
		role = models.RoleCustomer
	}
	if !models.ValidRole(role) {
		respondError(c, http.StatusBadRequest, "INVALID_ROLE", "Role must be customer, technician or admin")
		return
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Role:    role,
	}

	db := config.GetDB().WithContext(c.Request.Context())
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if role != models.RoleTechnician {
			return nil
		}
		return tx.Create(&models.Technician{UserID: user.ID, Specialization: models.DefaultSpecialization}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists")
			return
		}
		log.Printf("Failed to create user %s: %v", auth0ID, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user")
		return
	}

	respondData(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func (uc *UserController) GetMyProfile(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	respondData(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's
// profile. The role cannot be changed.
func (uc *UserController) UpdateMyProfile(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Phone != nil {
		if phone := strings.TrimSpace(*req.Phone); phone != "" {
			updates["phone"] = phone
		} else {
			updates["phone"] = nil
		}
	}

	// If no fields to update, return current user
	if len(updates) == 0 {
		respondData(c, http.StatusOK, user)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists")
			return
		}
		log.Printf("Failed to update user %d: %v", user.ID, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user profile")
		return
	}

	var updated models.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated profile")
		return
	}

	respondData(c, http.StatusOK, updated)
}
