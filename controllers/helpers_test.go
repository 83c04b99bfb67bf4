package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/kendall-kelly/quickfix-api/services"
	"github.com/kendall-kelly/quickfix-api/store"
	"github.com/kendall-kelly/quickfix-api/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestDB opens a fresh schema and makes it the global connection
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewTestDB(t)
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(nil) })
	return db
}

// recordingEmitter keeps every event the engine emits
type recordingEmitter struct {
	events []dispatch.Event
}

func (r *recordingEmitter) Emit(_ context.Context, evt dispatch.Event) {
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) types() []dispatch.EventType {
	out := make([]dispatch.EventType, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

// bookingRouter mounts the booking routes behind MockAuth for user
func bookingRouter(db *gorm.DB, user *models.User, images services.ImageService, events dispatch.Emitter) *gin.Engine {
	bc := NewBookingController(dispatch.NewService(store.NewGormStore(db), events, dispatch.Options{}), images)

	router := gin.New()
	g := router.Group("/api/v1", testutil.MockAuth(user))
	g.POST("/bookings", bc.CreateBooking)
	g.GET("/bookings", bc.ListBookings)
	g.GET("/bookings/:id", bc.GetBooking)
	g.PUT("/bookings/:id", bc.UpdateBooking)
	g.DELETE("/bookings/:id", bc.CancelBooking)
	g.PATCH("/bookings/:id/status", bc.UpdateBookingStatus)
	g.PATCH("/bookings/:id/assign", bc.AssignTechnician)
	g.PATCH("/bookings/:id/accept", bc.AcceptBooking)
	g.POST("/bookings/:id/image", bc.UploadBookingImage)
	return router
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response is not valid JSON: %v\n%s", err, w.Body.String())
	}
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decode(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no error object: %s", w.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	response := decode(t, w)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no data object: %s", w.Body.String())
	}
	return data
}
