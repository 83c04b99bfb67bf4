package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/notify"
	"github.com/kendall-kelly/quickfix-api/services"
	"github.com/kendall-kelly/quickfix-api/store"
	"github.com/kendall-kelly/quickfix-api/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// capturingNotifier records every delivered event
type capturingNotifier struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (n *capturingNotifier) record(evt dispatch.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return nil
}

func (n *capturingNotifier) NotifyBookingCreated(_ context.Context, evt dispatch.Event) error {
	return n.record(evt)
}

func (n *capturingNotifier) NotifyStatusChanged(_ context.Context, evt dispatch.Event) error {
	return n.record(evt)
}

func (n *capturingNotifier) NotifyTechnicianAssigned(_ context.Context, evt dispatch.Event) error {
	return n.record(evt)
}

func (n *capturingNotifier) types() []dispatch.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]dispatch.EventType, 0, len(n.events))
	for _, evt := range n.events {
		out = append(out, evt.Type)
	}
	return out
}

// RouterTestSuite drives the full router with real token validation
type RouterTestSuite struct {
	suite.Suite
	cfg      *config.Config
	db       *gorm.DB
	router   *gin.Engine
	outbox   *notify.Outbox
	notifier *capturingNotifier
	images   *services.MockImageService
}

func (s *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.cfg = testutil.TestConfig()
}

func (s *RouterTestSuite) SetupTest() {
	t := s.T()
	s.db = testutil.NewTestDB(t)
	config.SetDB(s.db)

	s.notifier = &capturingNotifier{}
	s.outbox = notify.NewOutbox(s.notifier, s.cfg.NotifyQueueSize)
	s.outbox.Start()
	s.images = services.NewMockImageService()

	bookings := dispatch.NewService(store.NewGormStore(s.db), s.outbox, dispatch.Options{})
	s.router = SetupRouter(s.cfg, Dependencies{Bookings: bookings, Images: s.images})
}

func (s *RouterTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.NoError(s.outbox.Close(ctx))
	config.SetDB(nil)
}

func (s *RouterTestSuite) token(subject, role string) string {
	return testutil.MintToken(s.T(), s.cfg, subject, role)
}

func (s *RouterTestSuite) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var response map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w.Code, response
}

func (s *RouterTestSuite) register(subject, role, name, email string) (string, map[string]interface{}) {
	token := s.token(subject, role)
	code, response := s.do(http.MethodPost, "/api/v1/users", token, map[string]interface{}{
		"name":  name,
		"email": email,
	})
	s.Require().Equal(http.StatusCreated, code, response)
	return token, response["data"].(map[string]interface{})
}

func errorCodeOf(response map[string]interface{}) string {
	errObj, _ := response["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

func (s *RouterTestSuite) TestPublicRoutes() {
	code, response := s.do(http.MethodGet, "/api/v1/health", "", nil)
	s.Equal(http.StatusOK, code)
	s.Equal(true, response["success"])

	code, _ = s.do(http.MethodGet, "/api/v1/services", "", nil)
	s.Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/technicians", "", nil)
	s.Equal(http.StatusOK, code)
}

func (s *RouterTestSuite) TestAuthentication() {
	code, response := s.do(http.MethodGet, "/api/v1/users/me", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("INVALID_TOKEN", errorCodeOf(response))

	code, _ = s.do(http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, code)

	foreign := *s.cfg
	foreign.JWTSecret = "some-other-secret"
	forged := testutil.MintToken(s.T(), &foreign, "e2e|forged", "admin")
	code, _ = s.do(http.MethodGet, "/api/v1/users/me", forged, nil)
	s.Equal(http.StatusUnauthorized, code)

	code, response = s.do(http.MethodGet, "/api/v1/bookings", s.token("e2e|stranger", ""), nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal("USER_NOT_FOUND", errorCodeOf(response))
}

func (s *RouterTestSuite) TestAdminRoutesRequireAdmin() {
	customerToken, _ := s.register("e2e|customer", "customer", "John Doe", "john@example.com")

	code, response := s.do(http.MethodPost, "/api/v1/services", customerToken, map[string]interface{}{
		"name":     "Roof Repair",
		"category": "Outdoor",
	})
	s.Equal(http.StatusForbidden, code)
	s.Equal("FORBIDDEN", errorCodeOf(response))

	code, _ = s.do(http.MethodGet, "/api/v1/technicians/me", customerToken, nil)
	s.Equal(http.StatusForbidden, code)
}

func (s *RouterTestSuite) TestBookingLifecycle() {
	customerToken, customer := s.register("e2e|customer", "customer", "John Doe", "john@example.com")
	techToken, _ := s.register("e2e|tech", "technician", "Sarah Williams", "sarah@example.com")
	adminToken, _ := s.register("e2e|admin", "admin", "Admin User", "admin@example.com")

	code, response := s.do(http.MethodPost, "/api/v1/services", adminToken, map[string]interface{}{
		"name":       "Plumbing Repair",
		"category":   "Plumbing",
		"base_price": 80,
	})
	s.Require().Equal(http.StatusCreated, code, response)
	serviceID := response["data"].(map[string]interface{})["id"]

	code, response = s.do(http.MethodGet, "/api/v1/technicians/me", techToken, nil)
	s.Require().Equal(http.StatusOK, code, response)
	techProfile := response["data"].(map[string]interface{})
	s.Equal("General", techProfile["specialization"])
	technicianID := techProfile["id"]

	code, response = s.do(http.MethodPost, "/api/v1/bookings", customerToken, map[string]interface{}{
		"service_id":          serviceID,
		"problem_description": "Kitchen sink is leaking",
		"address":             "12 Main Street",
		"preferred_date":      "2030-01-15",
		"preferred_time":      "10:00",
	})
	s.Require().Equal(http.StatusCreated, code, response)
	booking := response["data"].(map[string]interface{})
	s.Equal("pending", booking["status"])
	s.Equal(customer["id"], booking["customer_id"])
	path := fmt.Sprintf("/api/v1/bookings/%d", uint(booking["id"].(float64)))

	code, _ = s.do(http.MethodGet, path, techToken, nil)
	s.Equal(http.StatusForbidden, code, "unassigned technician must not see the booking")

	code, _ = s.do(http.MethodPatch, path+"/assign", customerToken, map[string]interface{}{"technician_id": technicianID})
	s.Equal(http.StatusForbidden, code)

	code, response = s.do(http.MethodPatch, path+"/assign", adminToken, map[string]interface{}{"technician_id": technicianID})
	s.Require().Equal(http.StatusOK, code, response)
	s.Equal("accepted", response["data"].(map[string]interface{})["status"])

	code, response = s.do(http.MethodPatch, path+"/accept", techToken, nil)
	s.Require().Equal(http.StatusOK, code, response)

	code, response = s.do(http.MethodPatch, path+"/status", techToken, map[string]interface{}{"status": "in_progress"})
	s.Require().Equal(http.StatusOK, code, response)

	code, response = s.do(http.MethodPatch, path+"/status", techToken, map[string]interface{}{"status": "completed"})
	s.Require().Equal(http.StatusOK, code, response)
	completed := response["data"].(map[string]interface{})
	s.NotNil(completed["completed_at"])

	code, response = s.do(http.MethodGet, path, customerToken, nil)
	s.Require().Equal(http.StatusOK, code)
	view := response["data"].(map[string]interface{})
	s.Equal("completed", view["status"])
	s.Equal(float64(1), view["technician"].(map[string]interface{})["total_jobs"])

	code, response = s.do(http.MethodDelete, path, customerToken, nil)
	s.Equal(http.StatusConflict, code)
	s.Equal("BOOKING_CLOSED", errorCodeOf(response))

	code, response = s.do(http.MethodGet, "/api/v1/bookings", techToken, nil)
	s.Require().Equal(http.StatusOK, code)
	s.Len(response["data"].([]interface{}), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.outbox.Close(ctx))
	s.Equal([]dispatch.EventType{
		dispatch.EventBookingCreated,
		dispatch.EventStatusChanged,
		dispatch.EventTechnicianAssigned,
		dispatch.EventStatusChanged,
		dispatch.EventStatusChanged,
	}, s.notifier.types())
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
