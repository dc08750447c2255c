package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/handler"
	"github.com/noah-isme/school-fees-api/internal/middleware"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/service"
	"github.com/noah-isme/school-fees-api/pkg/config"
	"github.com/noah-isme/school-fees-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-fees-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-fees-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by New.
type Handlers struct {
	AcademicYears *handler.AcademicYearHandler
	Categories    *handler.CategoryHandler
	Structures    *handler.StructureHandler
	Schedules     *handler.ScheduleHandler
	Assignments   *handler.AssignmentHandler
	Students      *handler.StudentHandler
	Exports       *handler.ExportHandler
	Health        *handler.HealthHandler
}

// Deps are the cross-cutting collaborators of the router.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Auth    middleware.Authenticator
}

var (
	readRoles  = []models.Role{models.RoleSchoolAdmin, models.RoleAccountant}
	writeRoles = []models.Role{models.RoleSchoolAdmin}
)

// New builds the gin engine with the middleware chain and every route.
func New(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(strings.TrimRight(cfg.APIPrefix, "/"))
	// The signed token is the credential for downloads.
	api.GET("/fees/exports/download/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Auth))
	read := middleware.RequireRoles(readRoles...)
	write := middleware.RequireRoles(writeRoles...)

	secured.GET("/students", read, h.Students.List)

	fees := secured.Group("/fees")

	years := fees.Group("/academic-years")
	years.GET("", read, h.AcademicYears.List)
	years.POST("", write, h.AcademicYears.Create)
	years.GET("/:id", read, h.AcademicYears.Get)
	years.PUT("/:id", write, h.AcademicYears.Update)
	years.DELETE("/:id", write, h.AcademicYears.Delete)
	years.POST("/:id/activate", write, h.AcademicYears.Activate)
	years.GET("/:id/terms", read, h.AcademicYears.ListTerms)
	years.POST("/:id/terms", write, h.AcademicYears.CreateTerm)

	categories := fees.Group("/categories")
	categories.GET("", read, h.Categories.List)
	categories.POST("", write, h.Categories.Create)
	categories.PUT("/:id", write, h.Categories.Update)

	structures := fees.Group("/structures")
	structures.GET("", read, h.Structures.List)
	structures.POST("", write, h.Structures.Create)
	structures.POST("/draft", write, h.Structures.Draft)
	structures.GET("/:id", read, h.Structures.Get)
	structures.DELETE("/:id", write, h.Structures.Delete)
	structures.POST("/:id/publish", write, h.Structures.Publish)
	structures.GET("/:id/schedules", read, h.Schedules.List)
	structures.POST("/:id/schedules", write, h.Schedules.Create)

	fees.POST("/payment-plans/preview", read, h.Schedules.Preview)
	fees.POST("/auto-assign", write, h.Assignments.AutoAssign)
	fees.GET("/assignments", read, h.Assignments.List)
	fees.POST("/assignments/:id/payments", read, h.Assignments.RecordPayment)

	fees.POST("/exports", read, h.Exports.Create)
	fees.GET("/exports/:id", read, h.Exports.Status)

	return r
}
