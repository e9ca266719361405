package main

import (
	"context"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bantaydalan/bantaydalan-api/app/controllers"
	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	apiv1 "github.com/bantaydalan/bantaydalan-api/internal/api/v1"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/cache"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/database"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/hcaptcha"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/jobqueue"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/lifecycle"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/mail"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/metrics"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/middleware"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/objectstore"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/router"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/security"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/session"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/statistics"
)

// NewApplication wires storage, services and routes. The returned func stops the
// background workers and closes connections.
func NewApplication(ctx context.Context) (*fiber.App, func()) {
	database.SetupDatabase()
	cache.SetupCache()
	storage := session.NewStore()

	factory := repository.NewFactory(database.GetDB())
	repos := factory.GetRepositories()
	if database.UseMongoReports() {
		if err := database.ConnectMongo(ctx); err != nil {
			panic(err)
		}
		factory.UseReportRepository(repository.NewMongoReportRepository(database.Col(database.ReportsCollection)))
		log.Info("[Server] Reports are stored in MongoDB")
	}
	if _, err := repos.Setting.Get(); err != nil {
		log.Warnf("[Server] Could not load settings, using defaults: %v", err)
	}

	redisClient := cache.GetClient()
	if !cache.Available() {
		redisClient = nil
	}

	recorder := audit.NewRecorder(repos.ActivityLog)
	stats := statistics.NewService(repos.Report, redisClient)

	var (
		manager    *jobqueue.Manager
		dispatcher *jobqueue.Dispatcher
	)
	if redisClient != nil {
		queue := jobqueue.NewQueue(redisClient, env.GetInt("JOB_WORKERS", 3))
		dispatcher = jobqueue.NewDispatcher(queue, models.GetAppSettings)
		registerProcessors(ctx, queue, repos)
		manager = jobqueue.NewManager(queue)
		manager.Start()
	} else {
		log.Warn("[Server] Redis unavailable, background jobs are disabled")
	}

	gateListeners := []lifecycle.Listener{stats}
	var scheduler lifecycle.AttachmentScheduler
	if dispatcher != nil {
		gateListeners = append(gateListeners, dispatcher)
		if objectstoreEnabled() {
			scheduler = dispatcher
		}
	}
	gate := lifecycle.NewGate(repos.Report, recorder, gateListeners...)
	intake := lifecycle.NewIntake(repos.Report, models.GetAppSettings, scheduler, stats)

	issuer := security.DefaultIssuer()
	ctrl := controllers.New(controllers.Deps{
		Repos:    repos,
		Gate:     gate,
		Intake:   intake,
		Audit:    recorder,
		Stats:    stats,
		Issuer:   issuer,
		Captcha:  hcaptcha.NewVerifier(),
		Settings: models.GetAppSettings,
	})

	app := fiber.New(fiber.Config{
		AppName:      "BantayDalan API",
		ErrorHandler: apperror.ErrorHandler,
		BodyLimit:    60 << 20, // up to ten inline images plus JSON overhead
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())

	// prometheus metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "metrics"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		checks := fiber.Map{"database": "ok", "redis": "ok"}
		status := fiber.StatusOK
		if sqlDB, err := database.GetDB().DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			checks["database"] = "down"
			status = fiber.StatusServiceUnavailable
		}
		if !cache.Available() {
			checks["redis"] = "down"
		}
		return c.Status(status).JSON(checks)
	})

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	auth := middleware.NewAuth(issuer, repos.Admin, repos.User)
	router.InstallRouter(app, router.NewApiRouter(apiv1.NewAPIServer(ctrl), auth, storage))

	shutdown := func() {
		if manager != nil {
			manager.Stop()
		}
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.DisconnectMongo(sctx); err != nil {
			log.Warnf("[Server] Mongo disconnect: %v", err)
		}
		if err := storage.Close(); err != nil {
			log.Warnf("[Server] Storage close: %v", err)
		}
		if sqlDB, err := database.GetDB().DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return app, shutdown
}

func objectstoreEnabled() bool {
	return env.GetBool("S3_ENABLED", false)
}

// registerProcessors binds job handlers for the integrations that are configured
func registerProcessors(ctx context.Context, queue *jobqueue.Queue, repos *repository.Repositories) {
	if objectstoreEnabled() {
		cfg, err := objectstore.LoadConfig()
		if err != nil {
			panic(err)
		}
		client, err := objectstore.NewClient(ctx, cfg)
		if err != nil {
			panic(err)
		}
		queue.Register(jobqueue.JobTypeAttachmentUpload, jobqueue.NewAttachmentProcessor(repos.Report, client, cfg).Handle)
		log.Infof("[Server] Attachment uploads go to bucket %s", cfg.BucketName)
	}

	mailer := mail.NewSMTPMailer()
	if mailer.Configured() {
		queue.Register(jobqueue.JobTypeNotifyReporter, jobqueue.NewNotifyProcessor(repos.Report, mailer).Handle)
	} else {
		log.Info("[Server] SMTP not configured, reporter notifications are disabled")
	}
}
