// Package routes wires the HTTP surface of the API
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/controllers"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/middleware"
	"github.com/kendall-kelly/quickfix-api/models"
	"github.com/kendall-kelly/quickfix-api/services"
)

// Dependencies are the collaborators the handlers need
type Dependencies struct {
	Bookings *dispatch.Service
	Images   services.ImageService
	// UserInfo is nil unless tokens come from Auth0
	UserInfo services.UserInfoProvider
}

// SetupRouter builds the gin engine with every /api/v1 route
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	if !cfg.IsTest() {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())

	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	bookings := controllers.NewBookingController(deps.Bookings, deps.Images)
	users := controllers.NewUserController(deps.UserInfo)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.GET("/database/status", controllers.DatabaseStatus)
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		// Public catalog
		v1.GET("/services", controllers.ListServices)
		v1.GET("/services/categories", controllers.ListServiceCategories)
		v1.GET("/services/:id", controllers.GetService)
		v1.GET("/technicians", controllers.ListTechnicians)
		v1.GET("/technicians/:id", controllers.GetTechnician)
	}

	authenticated := v1.Group("", middleware.EnsureValidToken(cfg))
	{
		// Registration runs before a user row exists
		authenticated.POST("/users", users.CreateUser)
	}

	members := authenticated.Group("", middleware.LoadActor())
	{
		members.GET("/users/me", users.GetMyProfile)
		members.PUT("/users/me", users.UpdateMyProfile)

		members.GET("/technicians/me", middleware.RequireRole(models.RoleTechnician), controllers.GetMyTechnicianProfile)
		members.PUT("/technicians/:id", controllers.UpdateTechnician)

		members.POST("/bookings", bookings.CreateBooking)
		members.GET("/bookings", bookings.ListBookings)
		members.GET("/bookings/:id", bookings.GetBooking)
		members.PUT("/bookings/:id", bookings.UpdateBooking)
		members.DELETE("/bookings/:id", bookings.CancelBooking)
		members.PATCH("/bookings/:id/status", bookings.UpdateBookingStatus)
		members.PATCH("/bookings/:id/assign", bookings.AssignTechnician)
		members.PATCH("/bookings/:id/accept", bookings.AcceptBooking)
		members.POST("/bookings/:id/image", bookings.UploadBookingImage)
	}

	admin := members.Group("", middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/technicians", controllers.CreateTechnician)
		admin.DELETE("/technicians/:id", controllers.DeleteTechnician)

		admin.POST("/services", controllers.CreateService)
		admin.PUT("/services/:id", controllers.UpdateService)
		admin.DELETE("/services/:id", controllers.DeleteService)
	}

	return router
}
