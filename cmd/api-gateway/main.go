package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-attendance-api/api/swagger"
	"github.com/noah-isme/campus-attendance-api/internal/handler"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	"github.com/noah-isme/campus-attendance-api/internal/router"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/cache"
	"github.com/noah-isme/campus-attendance-api/pkg/config"
	"github.com/noah-isme/campus-attendance-api/pkg/database"
	"github.com/noah-isme/campus-attendance-api/pkg/jobs"
	"github.com/noah-isme/campus-attendance-api/pkg/logger"
	"github.com/noah-isme/campus-attendance-api/pkg/notify"
	"github.com/noah-isme/campus-attendance-api/pkg/token"
)

// @title Campus Attendance API
// @version 1.0.0
// @description Day-order scheduling, QR attendance sessions, teacher absences with substitute transfers and OD requests.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, day-order cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	location := cfg.Location()
	validate := service.NewValidator()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	users := repository.NewUserRepository(db)
	teachers := repository.NewTeacherRepository(db)
	classes := repository.NewClassRepository(db)
	subjects := repository.NewSubjectRepository(db)
	students := repository.NewStudentRepository(db)
	assignments := repository.NewTeacherAssignmentRepository(db)
	absences := repository.NewAbsenceRepository(db)
	sessions := repository.NewAttendanceSessionRepository(db)
	odRequests := repository.NewODRequestRepository(db)
	calendar := repository.NewDayOrderRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.DayOrder.CacheTTL, logr, redisClient != nil)

	dayOrderCfg := service.DayOrderConfig{
		SourceName:        cfg.DayOrder.Source,
		DefaultDepartment: cfg.DayOrder.DefaultDepartment,
		Timeout:           cfg.DayOrder.Timeout,
		CacheTTL:          cfg.DayOrder.CacheTTL,
		FallbackDayOrder:  cfg.DayOrder.Fallback,
		MaxDayOrder:       cfg.DayOrder.MaxDayOrder,
		Location:          location,
	}
	var dayOrders *service.DayOrderService
	if cfg.DayOrder.Source == config.DayOrderSourceHTTP {
		client := service.NewDayOrderClient(cfg.DayOrder.ServiceURL, cfg.DayOrder.Timeout)
		dayOrders = service.NewDayOrderService(client, nil, cacheSvc, metrics, validate, logr, dayOrderCfg)
	} else {
		dayOrderCfg.SourceName = config.DayOrderSourceDatabase
		dayOrders = service.NewDayOrderService(calendar, calendar, cacheSvc, metrics, validate, logr, dayOrderCfg)
	}

	var mailer notify.Mailer
	switch cfg.Mail.Provider {
	case config.MailProviderSendGrid:
		mailer = notify.NewSendGridMailer(cfg.Mail.SendGridAPIKey, notify.Sender{Name: cfg.Mail.FromName, Address: cfg.Mail.FromAddress})
	default:
		mailer = notify.NewLogMailer(logr)
	}
	notifications := service.NewNotificationService(mailer, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		BufferSize: cfg.Mail.BufferSize,
		Logger:     logr,
	})
	rootCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	notifications.Start(rootCtx)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	assignmentSvc := service.NewTeacherAssignmentService(assignments, teachers, classes, subjects, cfg.DayOrder.MaxDayOrder, validate, logr)
	matcher := service.NewScheduledSessionService(assignments, dayOrders, logr)
	absenceSvc := service.NewAbsenceService(absences, teachers, notifications, metrics, validate, logr, cfg.Absences.DuplicatePolicy)
	sessionSvc := service.NewAttendanceSessionService(
		sessions, students, classes, subjects, odRequests, dayOrders, matcher,
		token.NewSigner(cfg.Sessions.TokenSecret), metrics, validate, logr,
		service.AttendanceSessionConfig{
			DefaultDuration: cfg.Sessions.DefaultDuration,
			PublicBaseURL:   cfg.Sessions.PublicBaseURL,
			Location:        location,
		},
	)
	odSvc := service.NewODRequestService(odRequests, students, notifications, validate, logr, location)
	directorySvc := service.NewDirectoryService(teachers, classes, subjects, validate, logr)

	engine := router.Setup(router.Deps{
		Config:   cfg,
		Logger:   logr,
		Tokens:   authSvc,
		Audit:    users,
		Observer: metrics,
	}, router.Handlers{
		Auth:              handler.NewAuthHandler(authSvc),
		DayOrder:          handler.NewDayOrderHandler(dayOrders),
		Assignments:       handler.NewAssignmentHandler(assignmentSvc),
		ScheduledSessions: handler.NewScheduledSessionHandler(matcher),
		Absences:          handler.NewAbsenceHandler(absenceSvc),
		Sessions:          handler.NewAttendanceSessionHandler(sessionSvc),
		ODRequests:        handler.NewODRequestHandler(odSvc),
		Directory:         handler.NewDirectoryHandler(directorySvc),
		Metrics:           handler.NewMetricsHandler(metrics.Handler()),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("day_order_source", dayOrderCfg.SourceName))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logr.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	notifications.Stop()
	logr.Info("server stopped")
}
