package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/middleware"
	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/kendall-kelly/quickfix-api/services"
	"github.com/kendall-kelly/quickfix-api/utils"
)

// CreateBookingRequest represents the request body for creating a booking
type CreateBookingRequest struct {
	ServiceID          uint   `json:"service_id" binding:"required"`
	ProblemDescription string `json:"problem_description" binding:"required"`
	Address            string `json:"address" binding:"required"`
	PreferredDate      string `json:"preferred_date" binding:"required"` // YYYY-MM-DD or RFC 3339
	PreferredTime      string `json:"preferred_time" binding:"required"`
}

// UpdateBookingRequest represents the request body for editing a booking.
// Omitted fields are left untouched.
type UpdateBookingRequest struct {
	ProblemDescription *string  `json:"problem_description"`
	Address            *string  `json:"address"`
	PreferredDate      *string  `json:"preferred_date"`
	PreferredTime      *string  `json:"preferred_time"`
	FinalPrice         *float64 `json:"final_price"`
	ExpectedVersion    *int     `json:"expected_version"`
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ExpectedVersion *int   `json:"expected_version"`
}

// AssignTechnicianRequest represents the request body for dispatching a technician
type AssignTechnicianRequest struct {
	TechnicianID    uint `json:"technician_id" binding:"required"`
	ExpectedVersion *int `json:"expected_version"`
}

// BookingController exposes the booking engine over HTTP
type BookingController struct {
	bookings *dispatch.Service
	images   services.ImageService
}

// NewBookingController creates a booking controller. images may be nil, in
// which case photo uploads are rejected.
func NewBookingController(bookings *dispatch.Service, images services.ImageService) *BookingController {
	return &BookingController{bookings: bookings, images: images}
}

// CreateBooking handles POST /api/v1/bookings - opens a booking (customers only)
func (bc *BookingController) CreateBooking(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	date, err := parseDate(req.PreferredDate)
	if err != nil {
		respondValidation(c, err)
		return
	}

	view, err := bc.bookings.Create(c.Request.Context(), actor, dispatch.CreateInput{
		ServiceID:          req.ServiceID,
		ProblemDescription: req.ProblemDescription,
		Address:            req.Address,
		PreferredDate:      date,
		PreferredTime:      req.PreferredTime,
	})
	if err != nil {
		respondDispatchError(c, err, "create booking")
		return
	}

	respondData(c, http.StatusCreated, bc.withImageURL(c.Request.Context(), view))
}

// ListBookings handles GET /api/v1/bookings - lists the bookings visible to the caller
// Query parameters: status, page (default 1), limit (default 10, max 100)
func (bc *BookingController) ListBookings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := bc.bookings.List(c.Request.Context(), actor, dispatch.ListQuery{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondDispatchError(c, err, "list bookings")
		return
	}

	items := make([]*dispatch.BookingView, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, bc.withImageURL(c.Request.Context(), &result.Items[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"pagination": gin.H{
			"page":       result.Page,
			"limit":      result.Limit,
			"total":      result.Total,
			"totalPages": result.TotalPages,
		},
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (bc *BookingController) GetBooking(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}

	view, err := bc.bookings.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondDispatchError(c, err, "load booking")
		return
	}

	respondData(c, http.StatusOK, bc.withImageURL(c.Request.Context(), view))
}

// UpdateBooking handles PUT /api/v1/bookings/:id - edits booking details
func (bc *BookingController) UpdateBooking(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	patch := dispatch.BookingPatch{
		ProblemDescription: req.ProblemDescription,
		Address:            req.Address,
		PreferredTime:      req.PreferredTime,
		FinalPrice:         req.FinalPrice,
		ExpectedVersion:    req.ExpectedVersion,
	}
	if req.PreferredDate != nil {
		date, err := parseDate(*req.PreferredDate)
		if err != nil {
			respondValidation(c, err)
			return
		}
		patch.PreferredDate = &date
	}

	view, err := bc.bookings.UpdateFields(c.Request.Context(), actor, id, patch)
	if err != nil {
		respondDispatchError(c, err, "update booking")
		return
	}

	respondData(c, http.StatusOK, bc.withImageURL(c.Request.Context(), view))
}

// UpdateBookingStatus handles PATCH /api/v1/bookings/:id/status
func (bc *BookingController) UpdateBookingStatus(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	view, err := bc.bookings.UpdateStatus(c.Request.Context(), actor, id, dispatch.StatusUpdate{
		Status:          models.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondDispatchError(c, err, "update booking status")
		return
	}

	respondData(c, http.StatusOK, bc.withImageURL(c.Request.Context(), view))
}

// AssignTechnician handles PATCH /api/v1/bookings/:id/assign (admins only)
func (bc *BookingController) AssignTechnician(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}

	var req AssignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	view, err := bc.bookings.Assign(c.Request.Context(), actor, id, dispatch.Assignment{
		TechnicianID:    req.TechnicianID,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondDispatchError(c, err, "assign technician")
		return
	}

	respondData(c, http.StatusOK, bc.withImageURL(c.Request.Context(), view))
}

// AcceptBooking handles PATCH /api/v1/bookings/:id/accept (assigned technician only)
func (bc *BookingController) AcceptBooking(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}

	view, err := bc.bookings.Accept(c.Request.Context(), actor, id)
	if err != nil {
		respondDispatchError(c, err, "accept booking")
		return
	}

	respondData(c, http.StatusOK, bc.withImageURL(c.Request.Context(), view))
}

// CancelBooking handles DELETE /api/v1/bookings/:id - cancels, never deletes
func (bc *BookingController) CancelBooking(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}

	view, err := bc.bookings.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		respondDispatchError(c, err, "cancel booking")
		return
	}

	respondData(c, http.StatusOK, bc.withImageURL(c.Request.Context(), view))
}

// UploadBookingImage handles POST /api/v1/bookings/:id/image - attaches a PNG
// photo of the problem. The form field is "image".
func (bc *BookingController) UploadBookingImage(c *gin.Context) {
	actor, id, ok := actorAndBookingID(c)
	if !ok {
		return
	}
	if bc.images == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Image storage is not configured")
		return
	}

	// Refuse before storing anything
	ctx := c.Request.Context()
	if err := bc.bookings.CanAttachImage(ctx, actor, id); err != nil {
		respondDispatchError(c, err, "check booking")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the 'image' field")
		return
	}

	key, err := bc.images.UploadBookingImage(ctx, id, fileHeader)
	if err != nil {
		var fileErr *utils.FileUploadError
		if errors.As(err, &fileErr) {
			respondError(c, http.StatusBadRequest, fileErr.Code, fileErr.Message)
			return
		}
		log.Printf("Failed to store image for booking %d: %v", id, err)
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to store image")
		return
	}

	view, previous, err := bc.bookings.AttachImage(ctx, actor, id, key)
	if err != nil {
		bc.discardImage(ctx, key)
		respondDispatchError(c, err, "attach image")
		return
	}
	if previous != nil && *previous != key {
		bc.discardImage(ctx, *previous)
	}

	respondData(c, http.StatusOK, bc.withImageURL(ctx, view))
}

func (bc *BookingController) discardImage(ctx context.Context, key string) {
	if err := bc.images.DeleteImage(ctx, key); err != nil {
		log.Printf("warning: failed to delete image %s: %v", key, err)
	}
}

// withImageURL fills in a fetchable URL for the booking's photo
func (bc *BookingController) withImageURL(ctx context.Context, view *dispatch.BookingView) *dispatch.BookingView {
	if bc.images == nil || view.ImageKey == nil || *view.ImageKey == "" {
		return view
	}
	url, err := bc.images.GetImageURL(ctx, *view.ImageKey)
	if err != nil {
		log.Printf("warning: failed to build image URL for booking %d: %v", view.ID, err)
		return view
	}
	view.ImageURL = &url
	return view
}

func requireActor(c *gin.Context) (dispatch.Actor, bool) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return dispatch.Actor{}, false
	}
	return actor, true
}

func actorAndBookingID(c *gin.Context) (dispatch.Actor, uint, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return dispatch.Actor{}, 0, false
	}
	id, ok := parseID(c, "id", "INVALID_BOOKING_ID", "Booking ID must be a positive integer")
	if !ok {
		return dispatch.Actor{}, 0, false
	}
	return actor, id, true
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("preferred_date %q must be YYYY-MM-DD or RFC 3339", s)
}
