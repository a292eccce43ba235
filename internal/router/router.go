package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/handler"
	"github.com/noah-isme/campus-attendance-api/internal/middleware"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/config"
	"github.com/noah-isme/campus-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-attendance-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth              *handler.AuthHandler
	DayOrder          *handler.DayOrderHandler
	Assignments       *handler.AssignmentHandler
	ScheduledSessions *handler.ScheduledSessionHandler
	Absences          *handler.AbsenceHandler
	Sessions          *handler.AttendanceSessionHandler
	ODRequests        *handler.ODRequestHandler
	Directory         *handler.DirectoryHandler
	Metrics           *handler.MetricsHandler
}

// Deps carries the cross-cutting collaborators of the middleware chain.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   middleware.TokenValidator
	Audit    middleware.AuditWriter
	Observer middleware.RequestObserver
}

// Setup builds the gin engine with every route mounted under the API prefix.
func Setup(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.Observer != nil {
		r.Use(middleware.Metrics(deps.Observer))
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/day-order", h.DayOrder.Current)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.GET("/auth/me", h.Auth.Me)

	admin := secured.Group("", middleware.RequireRoles())
	admin.PUT("/day-order/calendar", audit(models.AuditActionCalendarUpsert, "day_order_calendar"), h.DayOrder.UpsertCalendar)
	admin.POST("/assignments", audit(models.AuditActionAssignment, "assignment"), h.Assignments.Create)
	admin.PUT("/assignments/:id", audit(models.AuditActionAssignment, "assignment"), h.Assignments.Update)
	admin.DELETE("/assignments/:id", audit(models.AuditActionAssignment, "assignment"), h.Assignments.Delete)
	admin.POST("/teachers", h.Directory.CreateTeacher)
	admin.POST("/classes", h.Directory.CreateClass)
	admin.POST("/subjects", h.Directory.CreateSubject)

	staff := secured.Group("", middleware.RequireRoles(models.RoleTeacher))
	staff.GET("/day-order/calendar", h.DayOrder.ListCalendar)
	staff.GET("/assignments", h.Assignments.List)
	staff.GET("/assignments/:id", h.Assignments.Get)
	staff.GET("/teachers", h.Directory.ListTeachers)
	staff.GET("/classes", h.Directory.ListClasses)
	staff.GET("/subjects", h.Directory.ListSubjects)
	staff.GET("/od-requests", h.ODRequests.List)
	staff.POST("/od-requests/:id/decision", audit(models.AuditActionODDecision, "od_request"), h.ODRequests.Decide)

	teacher := staff.Group("/teacher")
	teacher.GET("/scheduled-sessions", h.ScheduledSessions.List)
	teacher.POST("/absences", audit(models.AuditActionAbsenceRecord, "teacher_absence"), h.Absences.Record)
	teacher.GET("/absences", h.Absences.List)
	teacher.GET("/absences/:id", h.Absences.Get)
	teacher.GET("/transfers", h.Absences.ListTransfers)

	sessions := teacher.Group("/attendance-sessions")
	sessions.POST("", h.Sessions.Open)
	sessions.POST("/auto", h.Sessions.AutoStart)
	sessions.GET("/:id/ticket", h.Sessions.Ticket)
	sessions.GET("/:id/qr", h.Sessions.QRCode)
	sessions.POST("/:id/close", audit(models.AuditActionSessionClose, "attendance_session"), h.Sessions.Close)
	sessions.GET("/:id/records", h.Sessions.Records)
	sessions.GET("/:id/export", h.Sessions.Export)

	student := secured.Group("/student", middleware.RequireRoles(models.RoleStudent))
	student.POST("/attendance", h.Sessions.Mark)
	student.POST("/od-requests", h.ODRequests.Create)
	student.GET("/od-requests", h.ODRequests.ListMine)

	security := secured.Group("/security", middleware.RequireRoles(models.RoleSecurity))
	security.GET("/od-requests/:id/verify", h.ODRequests.Verify)

	return r
}
