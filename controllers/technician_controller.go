package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/middleware"
	"github.com/kendall-kelly/quickfix-api/models"
	"gorm.io/gorm"
)

// CreateTechnicianRequest represents the request body for creating a technician profile
type CreateTechnicianRequest struct {
	UserID          uint    `json:"user_id" binding:"required"`
	Specialization  string  `json:"specialization" binding:"required"`
	ExperienceYears int     `json:"experience_years" binding:"gte=0"`
	Bio             *string `json:"bio"`
}

// UpdateTechnicianRequest represents the request body for updating a technician profile
type UpdateTechnicianRequest struct {
	Specialization  *string `json:"specialization"`
	ExperienceYears *int    `json:"experience_years" binding:"omitempty,gte=0"`
	Bio             *string `json:"bio"`
}

// TechnicianResponse is a technician profile with the owning user's contact details
type TechnicianResponse struct {
	models.Technician
	UserName  string  `json:"user_name"`
	UserEmail string  `json:"user_email"`
	UserPhone *string `json:"user_phone"`
}

func technicianResponse(t models.Technician) TechnicianResponse {
	resp := TechnicianResponse{Technician: t}
	if t.User != nil {
		resp.UserName = t.User.Name
		resp.UserEmail = t.User.Email
		resp.UserPhone = t.User.Phone
	}
	return resp
}

// ListTechnicians handles GET /api/v1/technicians
// Query parameters: specialization, skip (default 0), limit (default 100, max 100)
func ListTechnicians(c *gin.Context) {
	skip, limit := skipLimit(c)

	query := config.GetDB().WithContext(c.Request.Context()).Preload("User")
	if specialization := strings.TrimSpace(c.Query("specialization")); specialization != "" {
		query = query.Where("specialization = ?", specialization)
	}

	var technicians []models.Technician
	if err := query.Order("id").Offset(skip).Limit(limit).Find(&technicians).Error; err != nil {
		log.Printf("Failed to list technicians: %v", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list technicians")
		return
	}

	result := make([]TechnicianResponse, 0, len(technicians))
	for _, t := range technicians {
		result = append(result, technicianResponse(t))
	}
	respondData(c, http.StatusOK, result)
}

// GetTechnician handles GET /api/v1/technicians/:id
func GetTechnician(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_TECHNICIAN_ID", "Technician ID must be a positive integer")
	if !ok {
		return
	}

	technician, ok := loadTechnician(c, id)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, technicianResponse(*technician))
}

// GetMyTechnicianProfile handles GET /api/v1/technicians/me (technicians only)
func GetMyTechnicianProfile(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var technician models.Technician
	err = config.GetDB().WithContext(c.Request.Context()).Preload("User").Where("user_id = ?", user.ID).First(&technician).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "TECHNICIAN_PROFILE_NOT_FOUND", "Technician profile not found for this user")
			return
		}
		log.Printf("Failed to load technician profile for user %d: %v", user.ID, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load technician profile")
		return
	}

	respondData(c, http.StatusOK, technicianResponse(technician))
}

// CreateTechnician handles POST /api/v1/technicians (admins only). The user
// must have the technician role and no profile yet.
func CreateTechnician(c *gin.Context) {
	var req CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load user")
		return
	}
	if user.Role != models.RoleTechnician {
		respondError(c, http.StatusBadRequest, "INVALID_ROLE", "User must have technician role")
		return
	}

	var existing int64
	if err := db.Model(&models.Technician{}).Where("user_id = ?", user.ID).Count(&existing).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check technician profile")
		return
	}
	if existing > 0 {
		respondError(c, http.StatusConflict, "TECHNICIAN_EXISTS", "Technician profile already exists for this user")
		return
	}

	technician := models.Technician{
		UserID:          user.ID,
		Specialization:  strings.TrimSpace(req.Specialization),
		ExperienceYears: req.ExperienceYears,
		Bio:             req.Bio,
	}
	if err := db.Create(&technician).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "TECHNICIAN_EXISTS", "Technician profile already exists for this user")
			return
		}
		log.Printf("Failed to create technician for user %d: %v", user.ID, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create technician")
		return
	}

	technician.User = &user
	respondData(c, http.StatusCreated, technicianResponse(technician))
}

// UpdateTechnician handles PUT /api/v1/technicians/:id (admin or the profile owner)
func UpdateTechnician(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "INVALID_TECHNICIAN_ID", "Technician ID must be a positive integer")
	if !ok {
		return
	}

	var req UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	technician, ok := loadTechnician(c, id)
	if !ok {
		return
	}
	if actor.Role != models.RoleAdmin && technician.UserID != actor.ID {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Not authorized to update this technician profile")
		return
	}

	updates := make(map[string]interface{})
	if req.Specialization != nil {
		specialization := strings.TrimSpace(*req.Specialization)
		if specialization == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "specialization cannot be empty")
			return
		}
		updates["specialization"] = specialization
	}
	if req.ExperienceYears != nil {
		updates["experience_years"] = *req.ExperienceYears
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}

	if len(updates) > 0 {
		db := config.GetDB().WithContext(c.Request.Context())
		if err := db.Model(&models.Technician{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			log.Printf("Failed to update technician %d: %v", id, err)
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update technician")
			return
		}
		if technician, ok = loadTechnician(c, id); !ok {
			return
		}
	}

	respondData(c, http.StatusOK, technicianResponse(*technician))
}

// DeleteTechnician handles DELETE /api/v1/technicians/:id (admins only). A
// profile referenced by any booking is kept.
func DeleteTechnician(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_TECHNICIAN_ID", "Technician ID must be a positive integer")
	if !ok {
		return
	}
	if _, ok := loadTechnician(c, id); !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var references int64
	if err := db.Model(&models.Booking{}).Where("technician_id = ?", id).Count(&references).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check technician bookings")
		return
	}
	if references > 0 {
		respondError(c, http.StatusConflict, "TECHNICIAN_IN_USE", "Technician is assigned to bookings and cannot be deleted")
		return
	}

	if err := db.Delete(&models.Technician{}, id).Error; err != nil {
		log.Printf("Failed to delete technician %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete technician")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Technician deleted",
	})
}

func loadTechnician(c *gin.Context, id uint) (*models.Technician, bool) {
	var technician models.Technician
	err := config.GetDB().WithContext(c.Request.Context()).Preload("User").First(&technician, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "TECHNICIAN_NOT_FOUND", "Technician not found")
			return nil, false
		}
		log.Printf("Failed to load technician %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load technician")
		return nil, false
	}
	return &technician, true
}

// skipLimit reads offset paging parameters for catalog style listings
func skipLimit(c *gin.Context) (int, int) {
	skip, _ := strconv.Atoi(c.Query("skip"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 100 {
		limit = 100
	}
	return skip, limit
}
