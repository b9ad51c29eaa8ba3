package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/app"
	"github.com/iliyamo/smartcity-intake/internal/config"
	"github.com/iliyamo/smartcity-intake/internal/database"
	"github.com/iliyamo/smartcity-intake/internal/handler"
	"github.com/iliyamo/smartcity-intake/internal/metrics"
	"github.com/iliyamo/smartcity-intake/internal/middleware"
	"github.com/iliyamo/smartcity-intake/internal/notify"
	"github.com/iliyamo/smartcity-intake/internal/queue"
	"github.com/iliyamo/smartcity-intake/internal/recyclebin"
	"github.com/iliyamo/smartcity-intake/internal/repository"
	"github.com/iliyamo/smartcity-intake/internal/repository/memstore"
	"github.com/iliyamo/smartcity-intake/internal/router"
	"github.com/iliyamo/smartcity-intake/internal/service"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
	"github.com/iliyamo/smartcity-intake/internal/storage"
)

// backend is what both the SQL store and the in-memory store provide.
type backend interface {
	ports.Store
	Users() ports.UserStore
	Admissions() ports.AdmissionStore
	database.InventorySeeder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Production())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	if err := database.SeedInventory(ctx, store, cfg.SeedRooms, cfg.SeedBedsPerRoom); err != nil {
		return err
	}

	blob, err := storage.OpenBlob(ctx, storage.Config{
		Driver: cfg.BlobDriver,
		FSRoot: cfg.BlobFSRoot,
		S3: storage.S3Config{
			Bucket:    cfg.BlobS3Bucket,
			Region:    cfg.BlobS3Region,
			Endpoint:  cfg.BlobS3Endpoint,
			PathStyle: cfg.BlobS3Path,
		},
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	logger.Info("blob store ready", zap.String("driver", string(blob.Driver())))

	notifier, consumer, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	if consumer != nil {
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	m := metrics.New()
	opts := []service.Option{
		service.WithRecyclePolicy(recyclebin.New(cfg.RecycleRetention)),
		service.WithRecorder(m),
	}
	beds := service.NewBedLifecycle(store, storage.NewUploads(blob, "hostel/", cfg.UploadMaxBytes), notifier, logger, opts...)
	admissions := service.NewAdmissionService(store.Admissions(), storage.NewUploads(blob, "school/", cfg.UploadMaxBytes), notifier, logger, opts...)
	auth := service.NewAuthService(store.Users(), service.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
		BcryptCost:   cfg.BcryptCost,
	}, logger)

	if cfg.AdminEmail != "" {
		if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	sched := app.NewScheduler(cfg.PurgeInterval, map[string]app.Purger{
		"bookings":   beds,
		"admissions": admissions,
	}, beds, logger)
	sched.Start(ctx)
	defer sched.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger, m))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", 8*cfg.UploadMaxBytes/1024+64)))

	deps := router.Deps{
		JWTSecret:  cfg.JWTSecret,
		Redis:      config.NewRedisClient(cfg.Redis),
		Cache:      cfg.Cache,
		RateLimit:  cfg.RateLimit,
		Log:        logger,
		Metrics:    m.Handler(),
		Auth:       handler.NewAuthHandler(auth),
		Rooms:      handler.NewRoomHandler(beds),
		Bookings:   handler.NewBookingHandler(beds),
		Admissions: handler.NewAdmissionHandler(admissions),
		Files:      handler.NewFileHandler(blob),
	}
	if db != nil {
		deps.DB = db
	}
	if deps.Redis == nil {
		logger.Warn("redis unavailable, rate limiting and response cache disabled")
	}
	router.Register(e, deps)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore connects the configured database and applies migrations.  The
// memory driver returns a nil *sql.DB.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, *sql.DB, error) {
	var (
		db      *sql.DB
		dialect database.Dialect
		err     error
	)
	switch cfg.DBDriver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nil, nil
	case "sqlite":
		dialect = database.SQLite
		db, err = database.OpenSQLite(cfg.SQLitePath)
	default:
		dialect = database.MySQL
		db, err = database.OpenMySQL(database.MySQLConfig{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repository.NewStore(db, dialect), db, nil
}

// buildNotifier returns the notifier the services use.  In queue mode the
// services publish to RabbitMQ and the returned consumer delivers from it.
func buildNotifier(cfg config.Config, logger *zap.Logger) (ports.Notifier, *queue.Consumer, error) {
	mailer := notify.NewMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.SMTPFrom,
		Timeout: cfg.SMTPTimeout,
	}, logger)
	if !mailer.Configured() {
		logger.Warn("smtp credentials missing, emails are logged instead of sent")
	}
	var alerts []ports.Notifier
	tg, err := notify.NewTelegram(cfg.TelegramTok, cfg.TelegramChat, logger)
	if err != nil {
		return nil, nil, err
	}
	if tg != nil {
		alerts = append(alerts, tg)
	}
	direct := notify.NewDispatcher(mailer, logger, alerts...)

	if cfg.NotifyMode != "queue" {
		return direct, nil, nil
	}
	logger.Info("notifications go through rabbitmq", zap.String("queue", queue.NotificationQueue))
	return queue.NewPublisher(cfg.RabbitMQURL, logger), queue.NewConsumer(cfg.RabbitMQURL, direct, logger), nil
}
