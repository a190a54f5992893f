// main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/BotCoder254/streamvibes/database"
	"github.com/BotCoder254/streamvibes/events"
	"github.com/BotCoder254/streamvibes/handlers"
	"github.com/BotCoder254/streamvibes/logger"
	"github.com/BotCoder254/streamvibes/metrics"
	"github.com/BotCoder254/streamvibes/middleware"
	"github.com/BotCoder254/streamvibes/queue"
	"github.com/BotCoder254/streamvibes/services"
	"github.com/BotCoder254/streamvibes/storage"
	"github.com/BotCoder254/streamvibes/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("logger setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	// Video record repository
	var repo database.VideoRepository
	switch cfg.Repository {
	case "mongo":
		client, err := database.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		mongoRepo := database.NewMongoRepository(client, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = mongoRepo
	default:
		log.Warn("using in-memory repository, records are lost on restart")
		repo = database.NewMemoryRepository()
	}

	// Cassandra engagement event log (optional)
	var eventLog database.EventLog
	if len(cfg.Cassandra.Hosts) > 0 {
		session, err := database.NewCassandraDB(cfg.Cassandra)
		if err != nil {
			return err
		}
		defer session.Close()
		eventLog = database.NewCassandraEventLog(session)
	} else {
		log.Info("CASSANDRA_HOSTS not set, period watch-time analytics disabled")
	}

	// Processing queue
	var jobs queue.Queue
	switch cfg.Queue {
	case "redis":
		client, err := database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		jobs = queue.NewRedisQueue(client, cfg.Redis.QueueKey)
	default:
		jobs = queue.NewMemoryQueue(256)
	}

	// Asset store
	var (
		store  storage.AssetStore
		serve  func(app *fiber.App)
		tmpDir = filepath.Join(cfg.Storage.Root, "tmp")
	)
	switch cfg.Storage.Backend {
	case "minio":
		client, err := database.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		minioStore, err := storage.NewMinIOStore(client, cfg.MinIO.BucketName, tmpDir)
		if err != nil {
			return err
		}
		store = minioStore
		serve = func(app *fiber.App) {
			app.Get(storage.LocatorPrefix+"/*", handlers.ServeAsset(minioStore))
		}
	default:
		localStore, err := storage.NewLocalStore(cfg.Storage.Root)
		if err != nil {
			return err
		}
		store = localStore
		serve = func(app *fiber.App) {
			app.Static(storage.LocatorPrefix, localStore.UploadsDir(), fiber.Static{ByteRange: true})
		}
	}

	// Status events (optional)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		conn, ch, err := database.NewRabbitMQChannel(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer ch.Close()
		publisher = events.NewAMQPPublisher(ch, cfg.RabbitMQ.Exchange)
	}

	// Services
	videoService := services.NewVideoService(repo, store, jobs, services.NewMediaValidator(cfg.Upload), publisher, logger.Component(log, "videos"))
	processingService := services.NewProcessingService(services.ExecRunner{}, store, cfg.Processing, logger.Component(log, "processing"))
	engagementService := services.NewEngagementService(repo, eventLog, logger.Component(log, "engagement"))
	analyticsService := services.NewAnalyticsService(repo, eventLog)

	pool := workers.NewProcessingPool(jobs, processingService, videoService, cfg.Processing, logger.Component(log, "pool"))
	cleanup := workers.NewCleanupWorker(store, videoService, cfg.Cleanup, logger.Component(log, "cleanup"))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: handlers.ErrorHandler(logger.Component(log, "http")),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: log.Writer()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.UserHeader,
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))
	app.Use(metrics.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handlers.Register(app, handlers.Services{
		Videos:        videoService,
		Engagement:    engagementService,
		Analytics:     analyticsService,
		UploadLimiter: middleware.RateLimit(cfg.RateLimit),
	})
	serve(app)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		for o := range pool.Outcomes() {
			log.WithFields(logrus.Fields{"job_id": o.JobID, "video_id": o.VideoID, "status": o.Status, "settled": o.Settled}).Debug("job outcome")
		}
		return nil
	})
	g.Go(func() error {
		return cleanup.Run(gctx)
	})
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("server started")
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(cfg.ShutdownIn)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
