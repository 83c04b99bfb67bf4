package controllers

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/models"
	"gorm.io/gorm"
)

// CreateServiceRequest represents the request body for adding a catalog entry
type CreateServiceRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Category    string  `json:"category" binding:"required"`
	BasePrice   float64 `json:"base_price" binding:"gte=0"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateServiceRequest represents the request body for editing a catalog entry
type UpdateServiceRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	BasePrice   *float64 `json:"base_price" binding:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active"`
}

// ListServices handles GET /api/v1/services
// Query parameters: category, is_active (default true), skip, limit
func ListServices(c *gin.Context) {
	skip, limit := skipLimit(c)

	active := true
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "is_active must be true or false")
			return
		}
		active = parsed
	}

	query := config.GetDB().WithContext(c.Request.Context()).Where("is_active = ?", active)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}

	var catalog []models.Service
	if err := query.Order("category").Order("name").Offset(skip).Limit(limit).Find(&catalog).Error; err != nil {
		log.Printf("Failed to list services: %v", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list services")
		return
	}

	respondData(c, http.StatusOK, catalog)
}

// ListServiceCategories handles GET /api/v1/services/categories
func ListServiceCategories(c *gin.Context) {
	var categories []string
	err := config.GetDB().WithContext(c.Request.Context()).
		Model(&models.Service{}).
		Distinct().
		Pluck("category", &categories).Error
	if err != nil {
		log.Printf("Failed to list service categories: %v", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list categories")
		return
	}

	sort.Strings(categories)
	if categories == nil {
		categories = []string{}
	}
	respondData(c, http.StatusOK, categories)
}

// GetService handles GET /api/v1/services/:id
func GetService(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_SERVICE_ID", "Service ID must be a positive integer")
	if !ok {
		return
	}

	service, ok := loadService(c, id)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, service)
}

// CreateService handles POST /api/v1/services (admins only)
func CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	name, category := strings.TrimSpace(req.Name), strings.TrimSpace(req.Category)
	if name == "" || category == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name and category cannot be empty")
		return
	}

	service := models.Service{
		Name:        name,
		Description: req.Description,
		Category:    category,
		BasePrice:   req.BasePrice,
		IsActive:    true,
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if exists, err := serviceNameTaken(db, name, 0); err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check service name")
		return
	} else if exists {
		respondError(c, http.StatusConflict, "SERVICE_EXISTS", "Service with this name already exists")
		return
	}

	if err := db.Create(&service).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "SERVICE_EXISTS", "Service with this name already exists")
			return
		}
		log.Printf("Failed to create service %q: %v", name, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create service")
		return
	}

	respondData(c, http.StatusCreated, service)
}

// UpdateService handles PUT /api/v1/services/:id (admins only)
func UpdateService(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_SERVICE_ID", "Service ID must be a positive integer")
	if !ok {
		return
	}

	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if _, ok := loadService(c, id); !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name cannot be empty")
			return
		}
		if exists, err := serviceNameTaken(db, name, id); err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check service name")
			return
		} else if exists {
			respondError(c, http.StatusConflict, "SERVICE_EXISTS", "Service with this name already exists")
			return
		}
		updates["name"] = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "category cannot be empty")
			return
		}
		updates["category"] = category
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.BasePrice != nil {
		updates["base_price"] = *req.BasePrice
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Service{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			log.Printf("Failed to update service %d: %v", id, err)
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update service")
			return
		}
	}

	service, ok := loadService(c, id)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, service)
}

// DeleteService handles DELETE /api/v1/services/:id (admins only). Services
// that have bookings must be deactivated instead.
func DeleteService(c *gin.Context) {
	id, ok := parseID(c, "id", "INVALID_SERVICE_ID", "Service ID must be a positive integer")
	if !ok {
		return
	}
	if _, ok := loadService(c, id); !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var references int64
	if err := db.Model(&models.Booking{}).Where("service_id = ?", id).Count(&references).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check service bookings")
		return
	}
	if references > 0 {
		respondError(c, http.StatusConflict, "SERVICE_IN_USE", "Service has bookings; deactivate it instead")
		return
	}

	if err := db.Delete(&models.Service{}, id).Error; err != nil {
		log.Printf("Failed to delete service %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete service")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Service deleted",
	})
}

func loadService(c *gin.Context, id uint) (*models.Service, bool) {
	var service models.Service
	if err := config.GetDB().WithContext(c.Request.Context()).First(&service, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found")
			return nil, false
		}
		log.Printf("Failed to load service %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load service")
		return nil, false
	}
	return &service, true
}

func serviceNameTaken(db *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Service{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error
	return count > 0, err
}
