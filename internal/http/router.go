package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	intconfig "kocrou/internal/config"
	h "kocrou/internal/http/handlers"
	"kocrou/internal/http/middleware"
)

func NewRouter(env intconfig.Env, app *h.App) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route introuvable",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	protect := middleware.Protect(app.Authenticator())
	admin := middleware.AdminOnly()

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", app.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/register", app.Register)
		auth.POST("/login", app.Login)
		auth.POST("/refresh", app.Refresh)
		auth.GET("/me", protect, app.Me)

		api.GET("/settings", app.GetSettings)

		// Everything below requires a session; admin writes are journaled.
		secured := api.Group("", protect, middleware.ActivityLogger(app.ActivityRecorder))
		secured.GET("/routes", admin, h.Routes(r))
		secured.PUT("/settings", admin, app.UpdateSettings)

		trips := secured.Group("/trajets")
		trips.GET("", app.ListTrips)
		trips.GET("/:id", app.GetTrip)
		trips.POST("", admin, app.CreateTrip)
		trips.POST("/repair", admin, app.RepairRemaining)
		trips.PUT("/:id", admin, app.UpdateTrip)
		trips.DELETE("/:id", admin, app.DeleteTrip)
		trips.POST("/:id/segments", admin, app.AddSegment)
		trips.PUT("/:id/segments/:segmentId", admin, app.UpdateSegment)
		trips.DELETE("/:id/segments/:segmentId", admin, app.DeleteSegment)

		reservations := secured.Group("/reservations")
		reservations.POST("", app.CreateReservation)
		reservations.GET("", app.MyReservations)
		reservations.GET("/trajet/:id", app.ReservedSeats)
		reservations.GET("/admin/reservations", admin, app.ListAllReservations)
		reservations.PUT("/admin/reservations/:id/cancel", admin, app.CancelReservation)
		reservations.PUT("/admin/reservations/:id/validate", admin, app.ValidateReservation)
		reservations.GET("/:id", app.GetReservation)
		reservations.GET("/:id/ticket", app.ReservationTicket)
		reservations.DELETE("/:id", app.DeleteReservation)

		users := secured.Group("/users", admin)
		users.GET("", app.ListUsers)
		users.PUT("/:id/promote", app.PromoteUser)
		users.DELETE("/:id", app.DeleteUser)

		logs := secured.Group("/logs", admin)
		logs.GET("", app.ListLogs)
		logs.DELETE("", app.ClearLogs)

		monitoring := secured.Group("/monitoring", admin)
		monitoring.GET("", app.Monitoring)
		monitoring.GET("/stream", app.MonitoringStream)
		monitoring.POST("/ping", app.MonitoringPing)
	}

	return r
}
