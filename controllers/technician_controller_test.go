package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/kendall-kelly/quickfix-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func technicianRouter(user *models.User) *gin.Engine {
	router := gin.New()
	router.GET("/technicians", ListTechnicians)
	router.GET("/technicians/:id", GetTechnician)

	authed := router.Group("", testutil.MockAuth(user))
	authed.GET("/technicians/me", GetMyTechnicianProfile)
	authed.POST("/technicians", CreateTechnician)
	authed.PUT("/technicians/:id", UpdateTechnician)
	authed.DELETE("/technicians/:id", DeleteTechnician)
	return router
}

func TestListTechnicians(t *testing.T) {
	db := setupTestDB(t)
	testutil.CreateTechnician(t, db, "Mike Johnson", "Electrician")
	testutil.CreateTechnician(t, db, "Sarah Williams", "Plumber")
	testutil.CreateTechnician(t, db, "Pat Lee", "Plumber")
	router := technicianRouter(&models.User{})

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{"all", "", 3},
		{"by specialization", "?specialization=Plumber", 2},
		{"skip", "?skip=2", 1},
		{"limit", "?limit=1", 1},
		{"no match", "?specialization=Roofer", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, "/technicians"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			data := decode(t, w)["data"].([]interface{})
			assert.Len(t, data, tt.expected)
		})
	}

	w := performRequest(router, http.MethodGet, "/technicians?limit=1", nil)
	first := decode(t, w)["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Mike Johnson", first["user_name"])
	assert.NotEmpty(t, first["user_email"])
}

func TestGetTechnician(t *testing.T) {
	db := setupTestDB(t)
	_, tech := testutil.CreateTechnician(t, db, "Sarah Williams", "Plumber")
	router := technicianRouter(&models.User{})

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/technicians/%d", tech.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "Plumber", data["specialization"])
	assert.Equal(t, "Sarah Williams", data["user_name"])

	w = performRequest(router, http.MethodGet, "/technicians/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TECHNICIAN_NOT_FOUND", errorCode(t, w))

	w = performRequest(router, http.MethodGet, "/technicians/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TECHNICIAN_ID", errorCode(t, w))
}

func TestGetMyTechnicianProfile(t *testing.T) {
	db := setupTestDB(t)
	techUser, tech := testutil.CreateTechnician(t, db, "Sarah Williams", "Plumber")
	bare := testutil.CreateUser(t, db, models.RoleTechnician, "No Profile")

	w := performRequest(technicianRouter(techUser), http.MethodGet, "/technicians/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(tech.ID), dataOf(t, w)["id"])

	w = performRequest(technicianRouter(bare), http.MethodGet, "/technicians/me", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TECHNICIAN_PROFILE_NOT_FOUND", errorCode(t, w))
}

func TestCreateTechnician(t *testing.T) {
	db := setupTestDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, "Admin")
	candidate := testutil.CreateUser(t, db, models.RoleTechnician, "New Tech")
	customer := testutil.CreateUser(t, db, models.RoleCustomer, "Customer")
	existingUser, _ := testutil.CreateTechnician(t, db, "Existing", "Plumber")
	router := technicianRouter(admin)

	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
		expectedCode   string
	}{
		{"creates profile", map[string]interface{}{"user_id": candidate.ID, "specialization": "Electrician", "experience_years": 4}, http.StatusCreated, ""},
		{"unknown user", map[string]interface{}{"user_id": 9999, "specialization": "Electrician"}, http.StatusNotFound, "USER_NOT_FOUND"},
		{"customer role", map[string]interface{}{"user_id": customer.ID, "specialization": "Electrician"}, http.StatusBadRequest, "INVALID_ROLE"},
		{"already has profile", map[string]interface{}{"user_id": existingUser.ID, "specialization": "Electrician"}, http.StatusConflict, "TECHNICIAN_EXISTS"},
		{"negative experience", map[string]interface{}{"user_id": candidate.ID, "specialization": "Electrician", "experience_years": -1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing specialization", map[string]interface{}{"user_id": candidate.ID}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/technicians", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
				return
			}
			data := dataOf(t, w)
			assert.Equal(t, "Electrician", data["specialization"])
			assert.Equal(t, float64(4), data["experience_years"])
			assert.Equal(t, float64(0), data["total_jobs"])
			assert.Equal(t, "New Tech", data["user_name"])
		})
	}
}

func TestUpdateTechnician(t *testing.T) {
	db := setupTestDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, "Admin")
	ownerUser, tech := testutil.CreateTechnician(t, db, "Owner Tech", "Plumber")
	otherUser, _ := testutil.CreateTechnician(t, db, "Other Tech", "Electrician")
	path := fmt.Sprintf("/technicians/%d", tech.ID)

	w := performRequest(technicianRouter(ownerUser), http.MethodPut, path, map[string]interface{}{
		"bio":              "Twenty years under sinks",
		"experience_years": 20,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "Twenty years under sinks", data["bio"])
	assert.Equal(t, float64(20), data["experience_years"])

	w = performRequest(technicianRouter(admin), http.MethodPut, path, map[string]interface{}{
		"specialization": "Master Plumber",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Master Plumber", dataOf(t, w)["specialization"])

	w = performRequest(technicianRouter(otherUser), http.MethodPut, path, map[string]interface{}{
		"specialization": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(technicianRouter(admin), http.MethodPut, path, map[string]interface{}{
		"specialization": " ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTechnician(t *testing.T) {
	db := setupTestDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, "Admin")
	customer := testutil.CreateUser(t, db, models.RoleCustomer, "Customer")
	_, busy := testutil.CreateTechnician(t, db, "Busy", "Plumber")
	_, idle := testutil.CreateTechnician(t, db, "Idle", "Plumber")
	service := testutil.CreateService(t, db, "Plumbing Repair", "Plumbing", true)
	testutil.CreateBooking(t, db, customer.ID, service.ID, models.StatusAccepted, &busy.ID)
	router := technicianRouter(admin)

	w := performRequest(router, http.MethodDelete, fmt.Sprintf("/technicians/%d", busy.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "TECHNICIAN_IN_USE", errorCode(t, w))

	w = performRequest(router, http.MethodDelete, fmt.Sprintf("/technicians/%d", idle.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodDelete, fmt.Sprintf("/technicians/%d", idle.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
