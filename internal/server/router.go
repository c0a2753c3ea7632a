package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/pilotaja-api/internal/handler"
	"github.com/noah-isme/pilotaja-api/internal/middleware"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/pkg/config"
	"github.com/noah-isme/pilotaja-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pilotaja-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pilotaja-api/pkg/middleware/requestid"
)

// NewRouter builds the HTTP surface for app.
func NewRouter(app *App) *gin.Engine {
	cfg := app.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(app.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.Metrics))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	system := handler.NewMetricsHandler(app.Metrics, app.ReadinessChecks())
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	r.GET("/metrics", system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	appointments := handler.NewAppointmentHandler(app.Appointments)
	instructors := handler.NewInstructorHandler(app.Instructors)
	students := handler.NewStudentHandler(app.Students)

	admin := string(models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(app.Logger, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(app.Auth))

	api.POST("/appointments", audit("appointment.create", "appointment"), appointments.Create)
	api.GET("/appointments/:id", appointments.Get)
	api.PATCH("/appointments/:id/status", audit("appointment.transition", "appointment"), appointments.Transition)

	api.GET("/instructors", instructors.List)
	api.POST("/instructors", middleware.RBAC(admin), audit("instructor.create", "instructor"), instructors.Create)
	api.GET("/instructors/:id", instructors.Get)
	api.PUT("/instructors/:id/availability", middleware.RBAC(admin, middleware.SelfRole), audit("instructor.availability", "instructor"), instructors.ReplaceAvailability)
	api.GET("/instructors/:id/appointments", middleware.RBAC(admin, middleware.SelfRole), appointments.ListForInstructor)
	api.GET("/instructors/:id/agenda", middleware.RBAC(admin, middleware.SelfRole), appointments.ExportAgenda)

	api.POST("/students", middleware.RBAC(admin), audit("student.create", "student"), students.Create)
	api.GET("/students/:id", middleware.RBAC(admin, string(models.RoleInstructor), middleware.SelfRole), students.Get)
	api.GET("/students/:id/appointments", middleware.RBAC(admin, middleware.SelfRole), appointments.ListForStudent)

	return r
}
